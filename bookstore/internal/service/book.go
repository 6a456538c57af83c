package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	"github.com/Astemirdum/bookstore-service/pkg/kafka"
	"github.com/Astemirdum/bookstore-service/pkg/metrics"
	"github.com/Astemirdum/bookstore-service/pkg/pdfurl"
)

const (
	DefaultPopularLimit = 10
	MaxPopularLimit     = 100
)

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.InsertResult, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	book, err := s.repo.CreateBook(ctx, model.Book{
		ID:          id,
		Title:       req.Title,
		Author:      req.Author,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Description: req.Description,
		PdfURL:      pdfurl.ConvertToDirect(req.PdfURL),
		Price:       float64(req.Price),
	})
	if err != nil {
		return model.InsertResult{}, errors.Wrapf(err, "create book %s", id)
	}
	s.invalidatePopular(ctx)
	s.publish(kafka.BookEvent{EventType: kafka.EventBookCreated, BookID: book.ID})
	return model.InsertResult{Acknowledged: true, InsertedID: book.ID}, nil
}

func (s *Service) ListBooks(ctx context.Context, category string) ([]model.Book, error) {
	books, err := s.repo.ListBooks(ctx, category)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

// GetBook returns the book and counts the read as a view.
func (s *Service) GetBook(ctx context.Context, id string) (model.Book, error) {
	book, err := s.repo.ViewBook(ctx, id)
	if err != nil {
		return model.Book{}, err
	}
	metrics.BookViews.Inc()
	return book, nil
}

func (s *Service) UpdateBook(ctx context.Context, id string, req model.UpdateBookRequest) (model.UpdateResult, error) {
	if req.Empty() {
		return model.UpdateResult{}, errs.ErrEmptyUpdate
	}
	if req.PdfURL != nil {
		direct := pdfurl.ConvertToDirect(*req.PdfURL)
		req.PdfURL = &direct
	}
	if err := s.repo.UpdateBook(ctx, id, req); err != nil {
		return model.UpdateResult{}, errors.Wrapf(err, "update book %s", id)
	}
	s.invalidatePopular(ctx)
	s.publish(kafka.BookEvent{EventType: kafka.EventBookUpdated, BookID: id})
	return model.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *Service) DeleteBook(ctx context.Context, id string) (model.DeleteResult, error) {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return model.DeleteResult{}, errors.Wrapf(err, "delete book %s", id)
	}
	s.invalidatePopular(ctx)
	s.publish(kafka.BookEvent{EventType: kafka.EventBookDeleted, BookID: id})
	return model.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
}

// PopularBooks serves from the cache when it can. Cache errors degrade to a
// database read.
func (s *Service) PopularBooks(ctx context.Context, limit int) ([]model.Book, error) {
	if limit <= 0 {
		return nil, errs.ErrInvalidLimit
	}
	if limit > MaxPopularLimit {
		limit = MaxPopularLimit
	}

	books, ok, err := s.cache.Get(ctx, limit)
	switch {
	case err != nil:
		s.log.Warn("popular cache get", zap.Error(err))
	case ok:
		metrics.PopularCache.WithLabelValues("hit").Inc()
		return books, nil
	}
	metrics.PopularCache.WithLabelValues("miss").Inc()

	books, err = s.repo.PopularBooks(ctx, limit)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []model.Book{}
	}
	if err = s.cache.Set(ctx, limit, books); err != nil {
		s.log.Warn("popular cache set", zap.Error(err))
	}
	return books, nil
}
