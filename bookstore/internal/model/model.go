package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type Book struct {
	ID           string     `json:"_id" db:"id"`
	Title        string     `json:"bookTitle" db:"title"`
	Author       string     `json:"authorName" db:"author"`
	ImageURL     string     `json:"imageUrl" db:"image_url"`
	Category     string     `json:"category" db:"category"`
	Description  string     `json:"bookDescription" db:"description"`
	PdfURL       string     `json:"bookPdfUrl" db:"pdf_url"`
	Price        float64    `json:"price" db:"price"`
	Rating       float64    `json:"rating" db:"rating"`
	TotalRatings int        `json:"totalRatings" db:"total_ratings"`
	Views        int        `json:"views" db:"views"`
	LastViewed   *time.Time `json:"lastViewed,omitempty" db:"last_viewed"`
	LastRated    *time.Time `json:"lastRated,omitempty" db:"last_rated"`
	Version      int        `json:"version" db:"version"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// Price accepts both a JSON number and a numeric string, since the upload
// form posts the raw input value.
type Price float64

// MaxPrice is the first value the numeric(12,2) price column cannot hold.
const MaxPrice = 1e10

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*p = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Errorf("price %q is not a number", s)
		}
		return p.set(f)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	return p.set(f)
}

func (p *Price) set(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= MaxPrice {
		return errors.Errorf("price %v is out of range", f)
	}
	*p = Price(f)
	return nil
}

type CreateBookRequest struct {
	ID          string `json:"_id" validate:"omitempty,max=64"`
	Title       string `json:"bookTitle" validate:"required"`
	Author      string `json:"authorName" validate:"required"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	Category    string `json:"category"`
	Description string `json:"bookDescription"`
	PdfURL      string `json:"bookPdfUrl"`
	Price       Price  `json:"price" validate:"gte=0"`
}

// UpdateBookRequest is a partial update: nil fields are left untouched.
type UpdateBookRequest struct {
	Title       *string `json:"bookTitle" validate:"omitempty,min=1"`
	Author      *string `json:"authorName" validate:"omitempty,min=1"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
	Category    *string `json:"category"`
	Description *string `json:"bookDescription"`
	PdfURL      *string `json:"bookPdfUrl"`
	Price       *Price  `json:"price" validate:"omitempty,gte=0"`
}

func (r UpdateBookRequest) Empty() bool {
	return r.Title == nil && r.Author == nil && r.ImageURL == nil && r.Category == nil &&
		r.Description == nil && r.PdfURL == nil && r.Price == nil
}

type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

type RateRequest struct {
	Rating float64 `json:"rating"`
	UserID string  `json:"userId"`
}

type RatingResult struct {
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
}

// RatingState is the slice of a book read and written by a rating update.
type RatingState struct {
	Rating       float64 `db:"rating"`
	TotalRatings int     `db:"total_ratings"`
	Version      int     `db:"version"`
}

type User struct {
	UID         string    `json:"uid" db:"uid"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"displayName" db:"display_name"`
	PhotoURL    string    `json:"photoURL" db:"photo_url"`
	Role        Role      `json:"role" db:"role"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	LastLogin   time.Time `json:"lastLogin" db:"last_login"`
}

type LoginRequest struct {
	UID         string `json:"uid" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	AdminKey    string `json:"adminKey"`
}

type RoleChangeRequest struct {
	Role     Role   `json:"role"`
	AdminUID string `json:"adminUid" validate:"required"`
}

type BookStats struct {
	TotalBooks   int64   `db:"total_books"`
	TotalRatings int64   `db:"total_ratings"`
	RatingSum    float64 `db:"rating_sum"`
	TotalViews   int64   `db:"total_views"`
	AveragePrice float64 `db:"average_price"`
}

type UserStats struct {
	TotalUsers  int64 `db:"total_users"`
	TotalAdmins int64 `db:"total_admins"`
	ActiveUsers int64 `db:"active_users"`
}

type Dashboard struct {
	TotalBooks    int64     `json:"totalBooks"`
	TotalUsers    int64     `json:"totalUsers"`
	TotalAdmins   int64     `json:"totalAdmins"`
	TotalRatings  int64     `json:"totalRatings"`
	AverageRating float64   `json:"averageRating"`
	TotalViews    int64     `json:"totalViews"`
	AveragePrice  float64   `json:"averagePrice"`
	ActiveUsers7d int64     `json:"activeUsers7d"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

type PdfURLInfo struct {
	Original    string `json:"original"`
	DirectURL   string `json:"directUrl"`
	DriveFileID string `json:"driveFileId,omitempty"`
	EmbedURL    string `json:"embedUrl,omitempty"`
}

type PdfURLCheck struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Status    int    `json:"status,omitempty"`
}
