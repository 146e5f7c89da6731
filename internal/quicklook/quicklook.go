// Package quicklook shows a fit in a persistent gnuplot window. The gnuplot
// backend is only linked into binaries built with -tags gnuplot; otherwise
// Show reports ErrUnavailable.
package quicklook

import "errors"

var ErrUnavailable = errors.New("built without gnuplot support (rebuild with -tags gnuplot)")
