package badger

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys organize the two data
// types into logical namespaces:
//
// Data Type        Prefix   Key Format             Value
// =================================================================
// File Records     "r:"     r:<recordID>           FileRecord (JSON)
// Owner Index      "o:"     o:<ownerID>:<recordID> empty
//
// Records are identified by UUID v4, assigned at insert. The owner index
// is denormalized (one entry per record, not one list per owner) so that
// querying an owner's files is a single prefix scan over "o:<ownerID>:"
// followed by point lookups on "r:". Ownership checks on update/delete are
// a point lookup on the index entry: if o:<owner>:<id> is absent, the
// record either does not exist or belongs to someone else, and the two
// cases are indistinguishable to the caller.

const (
	recordPrefix = "r:"
	ownerPrefix  = "o:"
)

// recordKey returns the key holding a record's JSON document.
func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

// ownerIndexKey returns the owner index entry for a record.
func ownerIndexKey(ownerID, id string) []byte {
	return []byte(ownerPrefix + ownerID + ":" + id)
}

// ownerScanPrefix returns the prefix covering all of an owner's index
// entries.
func ownerScanPrefix(ownerID string) []byte {
	return []byte(ownerPrefix + ownerID + ":")
}
