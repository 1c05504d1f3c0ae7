package index

import "errors"

var (
	// ErrNoRecords is returned by Build when no indexable record survived
	// loading.
	ErrNoRecords = errors.New("index: no records loaded")

	// ErrNotBuilt is returned by Search and Save before an embedding matrix
	// exists.
	ErrNotBuilt = errors.New("index: not built")

	// ErrCorrupt is returned by LoadFile when the paired artifacts disagree
	// or the vector file is malformed.
	ErrCorrupt = errors.New("index: corrupt artifact")
)
