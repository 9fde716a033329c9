package feedback

import "errors"

var (
	// ErrInvalidWindow is returned for malformed week windows (start not before
	// end, or a span that is not roughly one week).
	ErrInvalidWindow = errors.New("invalid week window")

	// ErrJobNotReprocessable is returned when a manual reprocess targets a job
	// that is neither pending nor failed.
	ErrJobNotReprocessable = errors.New("job is not in a reprocessable state")
)
