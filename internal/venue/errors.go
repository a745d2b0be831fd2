package venue

import "errors"

var (
	ErrQuoteUnavailable     = errors.New("quote unavailable")
	ErrOrderRejected        = errors.New("order rejected")
	ErrNoPosition           = errors.New("no position to reduce")
	ErrVerificationMismatch = errors.New("venue state disagrees with close")
	ErrConfiguration        = errors.New("configuration error")
	ErrConnectivity         = errors.New("venue unreachable")
)

// Permanent reports whether err is a venue answer that retrying the same
// request cannot change.
func Permanent(err error) bool {
	return errors.Is(err, ErrOrderRejected) || errors.Is(err, ErrNoPosition) || errors.Is(err, ErrConfiguration)
}
