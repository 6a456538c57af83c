package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
)

var bookColumns = []string{
	"id", "title", "author", "image_url", "category", "description", "pdf_url", "price",
	"rating", "total_ratings", "views", "last_viewed", "last_rated", "version", "created_at", "updated_at",
}

func returningBook() string {
	return "returning " + strings.Join(bookColumns, ", ")
}

func (r *repository) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("id", "title", "author", "image_url", "category", "description", "pdf_url", "price").
		Values(book.ID, book.Title, book.Author, book.ImageURL, book.Category, book.Description, book.PdfURL, book.Price).
		Suffix(returningBook()).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, err
	}
	defer rows.Close()

	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		if isUniqueViolation(err) {
			return model.Book{}, errs.ErrAlreadyExists
		}
		r.log.Error("CreateBook", zap.String("q", query), zap.Error(err))
		return model.Book{}, err
	}
	return created, nil
}

func (r *repository) ListBooks(ctx context.Context, category string) ([]model.Book, error) {
	q := qb.Select(bookColumns...).From(booksTableName)
	if category != "" {
		q = q.Where(sq.Eq{"category": category})
	}
	query, args, err := q.OrderBy("created_at desc", "id").ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return books, nil
}

// ViewBook returns the book after bumping its view counter in the same statement.
func (r *repository) ViewBook(ctx context.Context, id string) (model.Book, error) {
	query, args, err := qb.Update(booksTableName).
		Set("views", sq.Expr("views + 1")).
		Set("last_viewed", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix(returningBook()).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.Book{}, err
	}
	defer rows.Close()

	book, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) UpdateBook(ctx context.Context, id string, upd model.UpdateBookRequest) error {
	set := make(map[string]interface{}, 8)
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Author != nil {
		set["author"] = *upd.Author
	}
	if upd.ImageURL != nil {
		set["image_url"] = *upd.ImageURL
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.PdfURL != nil {
		set["pdf_url"] = *upd.PdfURL
	}
	if upd.Price != nil {
		set["price"] = float64(*upd.Price)
	}
	if len(set) == 0 {
		return errs.ErrEmptyUpdate
	}
	set["updated_at"] = sq.Expr("now()")

	query, args, err := qb.Update(booksTableName).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("UpdateBook", zap.String("q", query), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteBook(ctx context.Context, id string) error {
	query, args, err := qb.Delete(booksTableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) PopularBooks(ctx context.Context, limit int) ([]model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		OrderBy("views desc", "rating desc", "total_ratings desc", "created_at desc").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return books, nil
}

func (r *repository) GetRatingState(ctx context.Context, id string) (model.RatingState, error) {
	query, args, err := qb.Select("rating", "total_ratings", "version").
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.RatingState{}, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.RatingState{}, err
	}
	defer rows.Close()

	state, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.RatingState])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RatingState{}, errs.ErrNotFound
		}
		return model.RatingState{}, err
	}
	return state, nil
}

// SwapRating writes next only if the stored version still equals version.
// It reports false when another writer got there first.
func (r *repository) SwapRating(ctx context.Context, id string, version int, next model.RatingState) (bool, error) {
	const q = `
update books
    set rating = $1,
        total_ratings = $2,
        version = version + 1,
        last_rated = now(),
        updated_at = now()
where id = $3 and version = $4`
	tag, err := r.db.Exec(ctx, q, next.Rating, next.TotalRatings, id, version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
