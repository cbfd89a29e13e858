package metadata

// RegistryError represents a domain error from upload or registry operations.
//
// These are business outcomes (record not found, input rejected, partial
// rollback) as opposed to raw infrastructure errors. Callers branch on Code;
// Message and FileName carry context for logging and display.
type RegistryError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// FileName is the file related to the error, if applicable
	FileName string
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.FileName != "" {
		return e.Message + ": " + e.FileName
	}
	return e.Message
}

// ErrorCode represents the category of a RegistryError.
type ErrorCode int

const (
	// ErrNotFound indicates the record does not exist or is not owned by
	// the caller. The two cases are deliberately indistinguishable.
	ErrNotFound ErrorCode = iota

	// ErrValidation indicates the input was rejected before any store was
	// touched: oversized file, disallowed type, too many files in a batch.
	ErrValidation

	// ErrStoreUnavailable indicates a blob or metadata store failure,
	// surfaced as-is with no automatic retry.
	ErrStoreUnavailable

	// ErrPartialInconsistency indicates the metadata insert failed after
	// the blob write succeeded. The pipeline attempts a compensating blob
	// delete; if that also fails the orphan blob is logged, not retried.
	ErrPartialInconsistency
)

// NewNotFound builds a RegistryError for a missing or foreign record.
func NewNotFound(message string) *RegistryError {
	return &RegistryError{Code: ErrNotFound, Message: message}
}

// NewValidation builds a RegistryError for rejected input.
func NewValidation(message, fileName string) *RegistryError {
	return &RegistryError{Code: ErrValidation, Message: message, FileName: fileName}
}

// NewStoreUnavailable builds a RegistryError wrapping a store failure.
func NewStoreUnavailable(message, fileName string) *RegistryError {
	return &RegistryError{Code: ErrStoreUnavailable, Message: message, FileName: fileName}
}

// NewPartialInconsistency builds a RegistryError for a failed insert after
// a successful blob write.
func NewPartialInconsistency(message, fileName string) *RegistryError {
	return &RegistryError{Code: ErrPartialInconsistency, Message: message, FileName: fileName}
}
