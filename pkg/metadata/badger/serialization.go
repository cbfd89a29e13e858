package badger

import (
	"encoding/json"
	"fmt"

	"github.com/clearwealth/filevault/pkg/metadata"
)

// Records are stored as JSON. Human-readable values make the database
// inspectable with badger's CLI tooling and keep schema evolution cheap;
// the record volume here (one row per uploaded file) never justifies a
// binary encoding.

// encodeRecord serializes a FileRecord to JSON bytes.
func encodeRecord(record metadata.FileRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file record: %w", err)
	}
	return data, nil
}

// decodeRecord deserializes JSON bytes into a FileRecord.
//
// The category tag is validated on read: a record carrying an unknown
// category is corrupt (or written by an incompatible version) and is
// surfaced as a decode error rather than silently accepted.
func decodeRecord(data []byte) (metadata.FileRecord, error) {
	var record metadata.FileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return metadata.FileRecord{}, fmt.Errorf("failed to decode file record: %w", err)
	}

	if _, err := metadata.ParseCategory(string(record.Category)); err != nil {
		return metadata.FileRecord{}, fmt.Errorf("failed to decode file record %s: %w", record.ID, err)
	}

	return record, nil
}
