// Package dictionary persists the custom dictionary: normalized English
// text mapped to its Bengali translation.
package dictionary

import "context"

// Loader returns the stored dictionary. A missing store yields an empty map,
// not an error.
type Loader interface {
	Load(ctx context.Context) (map[string]string, error)
}

// Saver merges entries into the stored dictionary. Existing keys not present
// in entries are kept.
type Saver interface {
	Merge(ctx context.Context, entries map[string]string) error
}

type Store interface {
	Loader
	Saver
}
