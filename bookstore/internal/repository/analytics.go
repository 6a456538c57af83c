package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
)

func (r *repository) BookStats(ctx context.Context) (model.BookStats, error) {
	query, args, err := qb.Select(
		"count(*) as total_books",
		"coalesce(sum(total_ratings), 0) as total_ratings",
		"coalesce(sum(rating * total_ratings), 0)::double precision as rating_sum",
		"coalesce(sum(views), 0) as total_views",
		"coalesce(avg(price), 0)::double precision as average_price",
	).From(booksTableName).ToSql()
	if err != nil {
		return model.BookStats{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.BookStats{}, err
	}
	defer rows.Close()

	stats, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BookStats])
	if err != nil {
		return model.BookStats{}, errors.Wrap(err, "book stats")
	}
	return stats, nil
}

func (r *repository) UserStats(ctx context.Context, activeSince time.Time) (model.UserStats, error) {
	const q = `
select count(*)                                       as total_users,
       count(*) filter (where role = 'admin')         as total_admins,
       count(*) filter (where last_login >= @since)   as active_users
from users`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"since": activeSince})
	if err != nil {
		return model.UserStats{}, err
	}
	defer rows.Close()

	stats, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.UserStats])
	if err != nil {
		return model.UserStats{}, errors.Wrap(err, "user stats")
	}
	return stats, nil
}
