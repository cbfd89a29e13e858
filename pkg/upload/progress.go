package upload

// Status is the lifecycle state of one file moving through the pipeline.
//
// The per-file sequence is monotonic:
//
//	queued → uploading → processing → completed
//
// or, on failure at any point:
//
//	queued → uploading → error
//
// Completed and error are terminal; the pipeline never emits another event
// for a file after one of them.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Event is one progress update for one file in a batch.
//
// Percent is an approximate indicator (roughly 10 once the blob write
// begins, 70 once it completes, 100 after the metadata commit). Exact
// values are not a contract; monotonicity and terminal-state correctness
// are. Consumers match events to files by FileName.
type Event struct {
	// FileName is the original name of the file this event refers to
	FileName string

	// Status is the lifecycle state after this event
	Status Status

	// Percent is the approximate progress in [0, 100]
	Percent int

	// Err carries the failure reason when Status is StatusError
	Err string
}
