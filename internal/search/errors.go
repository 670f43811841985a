package search

import (
	"github.com/rotisserie/eris"

	"github.com/atashie/locationAnalyzer/internal/geo"
)

// Error taxonomy for a session.
//
// ErrGeocode and ErrValidation are client-input failures and abort the
// session. Everything else (provider failures, empty feature queries) is
// absorbed as a skipped criterion and never surfaces as an error.
var (
	// ErrGeocode means the session center could not be resolved.
	ErrGeocode = eris.New("search: center location could not be geocoded")

	// ErrValidation marks malformed caller input: bad coordinates, unknown
	// modes, degenerate criteria.
	ErrValidation = eris.New("search: invalid input")
)

// IsClientError reports whether err should surface as a client-input error
// rather than an internal failure.
func IsClientError(err error) bool {
	return eris.Is(err, ErrGeocode) ||
		eris.Is(err, ErrValidation) ||
		eris.Is(err, geo.ErrInvalidCoordinate)
}
