package disk

import "github.com/lysandra/graphdb/internal/errs"

const component = "disk"

/*
Sentinel errs.Error values raised by the disk driver.
*/
var (
	// ErrFileNotFound is returned by Open when the backing file does not exist.
	ErrFileNotFound = errs.New(errs.NotFound, component, "file does not exist")

	// ErrFileExists is returned by Create when the backing file already exists.
	ErrFileExists = errs.New(errs.Duplicate, component, "file already exists")

	// ErrMapFailed wraps a failure to establish or extend the memory mapping.
	ErrMapFailed = errs.New(errs.IO, component, "failed to map file")

	// ErrTruncateFailed wraps a failure to grow the backing file.
	ErrTruncateFailed = errs.New(errs.IO, component, "failed to truncate file")

	// ErrClosed is returned by Ref, and so by WithRef and RefUpdate, once
	// Close has run.
	ErrClosed = errs.New(errs.InvalidState, component, "driver is closed")
)
