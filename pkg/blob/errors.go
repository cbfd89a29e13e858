package blob

import "errors"

// ErrKeyExists is returned by Put when overwrite is disabled and a blob is
// already stored under the key. The existing blob is left untouched.
var ErrKeyExists = errors.New("blob key already exists")

// ErrBlobNotFound is returned when an operation references a key with no
// stored blob. Delete does not return it (deletes are idempotent).
var ErrBlobNotFound = errors.New("blob not found")
