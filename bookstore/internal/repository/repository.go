package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	"github.com/Astemirdum/bookstore-service/pkg/kafka"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Repository interface {
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	ListBooks(ctx context.Context, category string) ([]model.Book, error)
	ViewBook(ctx context.Context, id string) (model.Book, error)
	UpdateBook(ctx context.Context, id string, upd model.UpdateBookRequest) error
	DeleteBook(ctx context.Context, id string) error
	PopularBooks(ctx context.Context, limit int) ([]model.Book, error)

	GetRatingState(ctx context.Context, id string) (model.RatingState, error)
	SwapRating(ctx context.Context, id string, version int, next model.RatingState) (bool, error)

	UpsertUser(ctx context.Context, req model.LoginRequest, promote bool) (model.User, error)
	GetUser(ctx context.Context, uid string) (model.User, error)
	SetRole(ctx context.Context, uid string, role model.Role) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	BookStats(ctx context.Context) (model.BookStats, error)
	UserStats(ctx context.Context, activeSince time.Time) (model.UserStats, error)

	SaveEvent(ctx context.Context, event kafka.BookEvent) error
}

// DB is the part of *pgxpool.Pool the repository uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type repository struct {
	db  DB
	log *zap.Logger
}

func NewRepository(db DB, log *zap.Logger) (*repository, error) {
	if db == nil {
		return nil, errors.New("nil db pool")
	}
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName  = `books`
	usersTableName  = `users`
	eventsTableName = `book_events`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
