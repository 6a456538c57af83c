package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/rating"
	"github.com/Astemirdum/bookstore-service/pkg/kafka"
	"github.com/Astemirdum/bookstore-service/pkg/metrics"
)

const maxRateAttempts = 5

// RateBook folds one rating into the book's running mean. The write is a
// compare-and-swap on the book version; a lost race re-reads and retries.
func (s *Service) RateBook(ctx context.Context, id string, req model.RateRequest) (model.RatingResult, error) {
	stars, err := rating.Validate(req.Rating)
	if err != nil {
		return model.RatingResult{}, err
	}

	for attempt := 0; attempt < maxRateAttempts; attempt++ {
		state, err := s.repo.GetRatingState(ctx, id)
		if err != nil {
			return model.RatingResult{}, errors.Wrapf(err, "rate book %s", id)
		}
		next, err := rating.Apply(rating.Aggregate{Average: state.Rating, Count: state.TotalRatings}, stars)
		if err != nil {
			return model.RatingResult{}, err
		}
		swapped, err := s.repo.SwapRating(ctx, id, state.Version, model.RatingState{
			Rating:       next.Average,
			TotalRatings: next.Count,
		})
		if err != nil {
			return model.RatingResult{}, errors.Wrapf(err, "rate book %s", id)
		}
		if !swapped {
			metrics.RatingConflicts.Inc()
			continue
		}

		metrics.RatingsSubmitted.Inc()
		s.invalidatePopular(ctx)
		s.publish(kafka.BookEvent{
			EventType:     kafka.EventBookRated,
			BookID:        id,
			UserID:        req.UserID,
			Rating:        stars,
			AverageRating: next.Average,
			TotalRatings:  next.Count,
		})
		return model.RatingResult{AverageRating: next.Average, TotalRatings: next.Count}, nil
	}
	return model.RatingResult{}, errors.Wrapf(errs.ErrConflict, "rate book %s after %d attempts", id, maxRateAttempts)
}
