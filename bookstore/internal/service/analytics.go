package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
)

const activeWindow = 7 * 24 * time.Hour

func (s *Service) Dashboard(ctx context.Context) (model.Dashboard, error) {
	now := s.now().UTC()
	var (
		books model.BookStats
		users model.UserStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		books, err = s.repo.BookStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.repo.UserStats(gctx, now.Add(-activeWindow))
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Dashboard{}, err
	}

	var avgRating float64
	if books.TotalRatings > 0 {
		avgRating = books.RatingSum / float64(books.TotalRatings)
	}
	return model.Dashboard{
		TotalBooks:    books.TotalBooks,
		TotalUsers:    users.TotalUsers,
		TotalAdmins:   users.TotalAdmins,
		TotalRatings:  books.TotalRatings,
		AverageRating: avgRating,
		TotalViews:    books.TotalViews,
		AveragePrice:  books.AveragePrice,
		ActiveUsers7d: users.ActiveUsers,
		GeneratedAt:   now,
	}, nil
}
