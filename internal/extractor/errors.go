package extractor

import (
	"errors"
	"fmt"
)

var (
	// ErrInputNotFound is returned when the source document is missing or
	// unreadable. No output is produced.
	ErrInputNotFound = errors.New("input document not found")
	// ErrUnsupportedInput is returned when the source extension is not in the
	// configured allow list, or when the run would overwrite its own input.
	ErrUnsupportedInput = errors.New("unsupported input document")
	// ErrAssetWrite marks an I/O failure while creating the assets directory
	// or an asset file. It aborts the run.
	ErrAssetWrite = errors.New("asset write failed")
	// ErrOutputWrite marks a failure writing the optimized document or the
	// metadata record.
	ErrOutputWrite = errors.New("output write failed")
	// ErrEngineReused is returned by a second call to Run.
	ErrEngineReused = errors.New("extractor already ran; start a new run per document")
)

// AssetWriteError carries the occurrence and path of a failed asset write.
type AssetWriteError struct {
	Index int
	Path  string
	Err   error
}

func (e *AssetWriteError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("asset write %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("asset write for occurrence %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *AssetWriteError) Is(target error) bool { return target == ErrAssetWrite }

func (e *AssetWriteError) Unwrap() error { return e.Err }
