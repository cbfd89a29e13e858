package upload

import (
	"fmt"
	"time"

	"github.com/clearwealth/filevault/pkg/blob"
)

// storageKey builds the blob key for one upload:
//
//	<ownerID>/<unix milliseconds>_<sanitized filename>
//
// The owner id scopes keys into per-user folders, the millisecond
// timestamp makes collisions between an owner's uploads practically
// impossible, and sanitization keeps the key filesystem- and URL-safe.
// Keys are generated by the pipeline and never user supplied.
func storageKey(ownerID, fileName string, now time.Time) blob.Key {
	return blob.Key(fmt.Sprintf("%s/%d_%s", ownerID, now.UnixMilli(), sanitizeFilename(fileName)))
}

// sanitizeFilename replaces every byte outside [A-Za-z0-9.-] with an
// underscore. Multi-byte runes sanitize to one underscore per byte, which
// is ugly but unambiguous; the original name is preserved verbatim on the
// file record for display.
func sanitizeFilename(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '.', c == '-':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
