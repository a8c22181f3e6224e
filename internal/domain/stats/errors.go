package stats

import crerr "github.com/cockroachdb/errors"

// Fetch failure taxonomy shared by every platform adapter. Adapters wrap one
// of these markers so callers can classify without knowing the transport.
var (
	// ErrTransient covers network failures, timeouts, rate limiting and 5xx
	// responses. The profile may exist; this attempt just failed.
	ErrTransient = crerr.New("transient fetch failure")

	// ErrExtraction covers unexpected payload shapes and pattern-match
	// misses against scraped documents. The platform answered, the answer
	// could not be normalized.
	ErrExtraction = crerr.New("payload extraction failed")

	// ErrProfileNotFound means the handle does not resolve to a profile.
	ErrProfileNotFound = crerr.New("profile not found")
)

func IsTransient(err error) bool { return crerr.Is(err, ErrTransient) }

func IsExtraction(err error) bool { return crerr.Is(err, ErrExtraction) }

func IsNotFound(err error) bool { return crerr.Is(err, ErrProfileNotFound) }
