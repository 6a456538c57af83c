// Package rating maintains a book's running mean rating.
//
// The mean is updated incrementally from the previous mean and count and
// is never recomputed from the individual ratings. No rounding is applied.
package rating

import (
	"math"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
)

const (
	MinStars = 1
	MaxStars = 5
)

type Aggregate struct {
	Average float64
	Count   int
}

// Validate accepts whole numbers in [MinStars, MaxStars].
func Validate(r float64) (int, error) {
	if math.IsNaN(r) || r != math.Trunc(r) || r < MinStars || r > MaxStars {
		return 0, errs.ErrInvalidRating
	}
	return int(r), nil
}

// Apply folds one more rating into a.
func Apply(a Aggregate, stars int) (Aggregate, error) {
	if stars < MinStars || stars > MaxStars {
		return a, errs.ErrInvalidRating
	}
	if a.Count < 0 {
		a.Count = 0
	}
	next := a.Count + 1
	return Aggregate{
		Average: (a.Average*float64(a.Count) + float64(stars)) / float64(next),
		Count:   next,
	}, nil
}
