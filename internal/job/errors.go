package job

import "errors"

var (
	// ErrUnknownKind is returned for a job kind the pipeline does not know.
	ErrUnknownKind = errors.New("unknown job kind")

	// ErrNoSourceText is returned when an item has none of the fields a
	// derived job works from.
	ErrNoSourceText = errors.New("item has no source text")

	// ErrUnsupportedField is returned when a request is built for a field the
	// job does not produce.
	ErrUnsupportedField = errors.New("field not produced by this job")

	// ErrUnsupportedFormat is returned for an image format other than jpg or png.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)
