package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string. IDs minted in the same millisecond still sort in
// creation order, so ULID keys double as a creation timeline.
func New() string {
	return ulid.Make().String()
}
