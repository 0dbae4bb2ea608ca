package domain

import "errors"

var (
	// ErrUnknownMode is returned when a quiz mode name is not recognised.
	ErrUnknownMode = errors.New("unknown quiz mode")
	// ErrUnknownStyle is returned when a quiz style name is not recognised.
	ErrUnknownStyle = errors.New("unknown quiz style")
	// ErrUnknownFormat is returned for a tabular file that is neither CSV nor XLSX.
	ErrUnknownFormat = errors.New("unknown file format")
	// ErrMissingNameColumn indicates an imported table has no molecule name column.
	ErrMissingNameColumn = errors.New("missing name column")
	// ErrNoHeader indicates an imported table is empty.
	ErrNoHeader = errors.New("missing header row")
)
