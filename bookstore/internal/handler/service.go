package handler

import (
	"context"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var _ BookstoreService = (*service.Service)(nil)

type BookstoreService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.InsertResult, error)
	ListBooks(ctx context.Context, category string) ([]model.Book, error)
	GetBook(ctx context.Context, id string) (model.Book, error)
	UpdateBook(ctx context.Context, id string, req model.UpdateBookRequest) (model.UpdateResult, error)
	DeleteBook(ctx context.Context, id string) (model.DeleteResult, error)
	RateBook(ctx context.Context, id string, req model.RateRequest) (model.RatingResult, error)
	PopularBooks(ctx context.Context, limit int) ([]model.Book, error)

	Login(ctx context.Context, req model.LoginRequest) (model.User, error)
	Authorize(ctx context.Context, uid string, capability model.Capability) error
	ChangeRole(ctx context.Context, uid string, req model.RoleChangeRequest) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	Dashboard(ctx context.Context) (model.Dashboard, error)

	ConvertPdfURL(raw string) (model.PdfURLInfo, error)
	CheckPdfURL(ctx context.Context, raw string) (model.PdfURLCheck, error)
}
