package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/pkg/kafka"
)

func (r *repository) SaveEvent(ctx context.Context, event kafka.BookEvent) error {
	query, args, err := qb.Insert(eventsTableName).
		Columns("event_type", "book_id", "user_id", "rating", "average_rating", "total_ratings", "occurred_at").
		Values(string(event.EventType), event.BookID, event.UserID, event.Rating, event.AverageRating, event.TotalRatings, event.Timestamp).
		ToSql()
	if err != nil {
		return err
	}
	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		r.log.Error("SaveEvent", zap.String("bookId", event.BookID), zap.Error(err))
		return err
	}
	return nil
}
