package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/cache"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	repo_mocks "github.com/Astemirdum/bookstore-service/bookstore/internal/repository/mocks"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/service"
	"github.com/Astemirdum/bookstore-service/pkg/circuit_breaker"
	"github.com/Astemirdum/bookstore-service/pkg/kafka"
)

type recordingQueue struct {
	mu     sync.Mutex
	events []kafka.BookEvent
	err    error
}

func (q *recordingQueue) Enqueue(topic string, v any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if ev, ok := v.(kafka.BookEvent); ok && topic == kafka.EventsTopic {
		q.events = append(q.events, ev)
	}
	return nil
}

func newService(t *testing.T, opts ...service.Option) (*service.Service, *repo_mocks.MockRepository) {
	t.Helper()
	c := gomock.NewController(t)
	repo := repo_mocks.NewMockRepository(c)
	return service.NewService(repo, zap.NewExample().Named("test"), opts...), repo
}

func TestService_RateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("running mean scenario", func(t *testing.T) {
		t.Parallel()
		q := &recordingQueue{}
		svc, repo := newService(t, service.WithEnqueuer(q))

		state := model.RatingState{}
		repo.EXPECT().GetRatingState(ctx, "b1").DoAndReturn(
			func(context.Context, string) (model.RatingState, error) { return state, nil }).Times(3)
		repo.EXPECT().SwapRating(ctx, "b1", gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, version int, next model.RatingState) (bool, error) {
				require.Equal(t, state.Version, version)
				state = model.RatingState{Rating: next.Rating, TotalRatings: next.TotalRatings, Version: version + 1}
				return true, nil
			}).Times(3)

		want := []model.RatingResult{
			{AverageRating: 5, TotalRatings: 1},
			{AverageRating: 4, TotalRatings: 2},
			{AverageRating: 4, TotalRatings: 3},
		}
		for i, stars := range []float64{5, 3, 4} {
			got, err := svc.RateBook(ctx, "b1", model.RateRequest{Rating: stars, UserID: "u1"})
			require.NoError(t, err)
			require.Equal(t, want[i].TotalRatings, got.TotalRatings)
			require.InDelta(t, want[i].AverageRating, got.AverageRating, 1e-9)
		}
		require.Len(t, q.events, 3)
		require.Equal(t, kafka.EventBookRated, q.events[2].EventType)
		require.Equal(t, "u1", q.events[2].UserID)
		require.Equal(t, 4, q.events[2].Rating)
		require.False(t, q.events[2].Timestamp.IsZero())
	})

	t.Run("invalid rating touches nothing", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		for _, r := range []float64{0, 6, 2.5} {
			_, err := svc.RateBook(ctx, "b1", model.RateRequest{Rating: r})
			require.ErrorIs(t, err, errs.ErrInvalidRating)
		}
	})

	t.Run("missing book", func(t *testing.T) {
		t.Parallel()
		svc, repo := newService(t)
		repo.EXPECT().GetRatingState(ctx, "nope").Return(model.RatingState{}, errs.ErrNotFound)

		_, err := svc.RateBook(ctx, "nope", model.RateRequest{Rating: 3})
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("retries after a lost swap", func(t *testing.T) {
		t.Parallel()
		svc, repo := newService(t)
		gomock.InOrder(
			repo.EXPECT().GetRatingState(ctx, "b1").Return(model.RatingState{Rating: 4, TotalRatings: 1, Version: 1}, nil),
			repo.EXPECT().SwapRating(ctx, "b1", 1, model.RatingState{Rating: 3, TotalRatings: 2}).Return(false, nil),
			repo.EXPECT().GetRatingState(ctx, "b1").Return(model.RatingState{Rating: 5, TotalRatings: 2, Version: 2}, nil),
			repo.EXPECT().SwapRating(ctx, "b1", 2, model.RatingState{Rating: 4, TotalRatings: 3}).Return(true, nil),
		)

		got, err := svc.RateBook(ctx, "b1", model.RateRequest{Rating: 2})
		require.NoError(t, err)
		require.Equal(t, model.RatingResult{AverageRating: 4, TotalRatings: 3}, got)
	})

	t.Run("persistent conflict", func(t *testing.T) {
		t.Parallel()
		svc, repo := newService(t)
		repo.EXPECT().GetRatingState(ctx, "b1").Return(model.RatingState{Version: 7}, nil).Times(5)
		repo.EXPECT().SwapRating(ctx, "b1", 7, gomock.Any()).Return(false, nil).Times(5)

		_, err := svc.RateBook(ctx, "b1", model.RateRequest{Rating: 1})
		require.ErrorIs(t, err, errs.ErrConflict)
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name        string
		serverKey   string
		adminKey    string
		wantPromote bool
	}{
		{name: "right key promotes", serverKey: "s3cret", adminKey: "s3cret", wantPromote: true},
		{name: "wrong key", serverKey: "s3cret", adminKey: "guess"},
		{name: "no key", serverKey: "s3cret"},
		{name: "promotion disabled", serverKey: "", adminKey: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, repo := newService(t, service.WithAdminKey(tt.serverKey))
			req := model.LoginRequest{UID: "u1", Email: "u1@example.com", AdminKey: tt.adminKey}
			repo.EXPECT().UpsertUser(ctx, req, tt.wantPromote).Return(model.User{UID: "u1", Role: model.RoleUser}, nil)

			_, err := svc.Login(ctx, req)
			require.NoError(t, err)
		})
	}
}

func TestService_ChangeRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, repo := newService(t)
		repo.EXPECT().GetUser(ctx, "admin").Return(model.User{UID: "admin", Role: model.RoleAdmin}, nil)
		repo.EXPECT().SetRole(ctx, "u2", model.RoleAdmin).Return(model.User{UID: "u2", Role: model.RoleAdmin}, nil)

		user, err := svc.ChangeRole(ctx, "u2", model.RoleChangeRequest{Role: model.RoleAdmin, AdminUID: "admin"})
		require.NoError(t, err)
		require.Equal(t, model.RoleAdmin, user.Role)
	})

	t.Run("invalid role is checked first", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		_, err := svc.ChangeRole(ctx, "u2", model.RoleChangeRequest{Role: "owner", AdminUID: "admin"})
		require.ErrorIs(t, err, errs.ErrInvalidRole)
	})

	t.Run("requester is not admin", func(t *testing.T) {
		t.Parallel()
		svc, repo := newService(t)
		repo.EXPECT().GetUser(ctx, "u1").Return(model.User{UID: "u1", Role: model.RoleUser}, nil)

		_, err := svc.ChangeRole(ctx, "u2", model.RoleChangeRequest{Role: model.RoleAdmin, AdminUID: "u1"})
		require.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("unknown requester", func(t *testing.T) {
		t.Parallel()
		svc, repo := newService(t)
		repo.EXPECT().GetUser(ctx, "ghost").Return(model.User{}, errs.ErrNotFound)

		_, err := svc.ChangeRole(ctx, "u2", model.RoleChangeRequest{Role: model.RoleUser, AdminUID: "ghost"})
		require.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("missing target", func(t *testing.T) {
		t.Parallel()
		svc, repo := newService(t)
		repo.EXPECT().GetUser(ctx, "admin").Return(model.User{UID: "admin", Role: model.RoleAdmin}, nil)
		repo.EXPECT().SetRole(ctx, "nope", model.RoleUser).Return(model.User{}, errs.ErrNotFound)

		_, err := svc.ChangeRole(ctx, "nope", model.RoleChangeRequest{Role: model.RoleUser, AdminUID: "admin"})
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestService_CreateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := &recordingQueue{}
	svc, repo := newService(t, service.WithEnqueuer(q))

	repo.EXPECT().CreateBook(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, b model.Book) (model.Book, error) {
			require.NotEmpty(t, b.ID)
			require.Equal(t, "https://drive.google.com/uc?export=view&id=ABC123", b.PdfURL)
			require.Equal(t, 12.5, b.Price)
			return b, nil
		})

	res, err := svc.CreateBook(ctx, model.CreateBookRequest{
		Title:  "Dune",
		Author: "Frank Herbert",
		PdfURL: "https://drive.google.com/file/d/ABC123/view?usp=sharing",
		Price:  12.5,
	})
	require.NoError(t, err)
	require.True(t, res.Acknowledged)
	require.NotEmpty(t, res.InsertedID)
	require.Len(t, q.events, 1)
	require.Equal(t, kafka.EventBookCreated, q.events[0].EventType)
	require.Equal(t, res.InsertedID, q.events[0].BookID)
}

func TestService_CreateBook_Duplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo := newService(t)
	repo.EXPECT().CreateBook(ctx, gomock.Any()).Return(model.Book{}, errs.ErrAlreadyExists)

	_, err := svc.CreateBook(ctx, model.CreateBookRequest{ID: "b1", Title: "t", Author: "a"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestService_UpdateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty patch", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		_, err := svc.UpdateBook(ctx, "b1", model.UpdateBookRequest{})
		require.ErrorIs(t, err, errs.ErrEmptyUpdate)
	})

	t.Run("normalizes pdf link", func(t *testing.T) {
		t.Parallel()
		svc, repo := newService(t)
		link := "https://www.dropbox.com/s/abc/f.pdf?dl=0"
		repo.EXPECT().UpdateBook(ctx, "b1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, upd model.UpdateBookRequest) error {
				require.NotNil(t, upd.PdfURL)
				require.Equal(t, "https://dl.dropboxusercontent.com/s/abc/f.pdf?dl=1", *upd.PdfURL)
				return nil
			})

		res, err := svc.UpdateBook(ctx, "b1", model.UpdateBookRequest{PdfURL: &link})
		require.NoError(t, err)
		require.Equal(t, int64(1), res.MatchedCount)
	})

	t.Run("missing book", func(t *testing.T) {
		t.Parallel()
		svc, repo := newService(t)
		title := "x"
		repo.EXPECT().UpdateBook(ctx, "nope", gomock.Any()).Return(errs.ErrNotFound)

		_, err := svc.UpdateBook(ctx, "nope", model.UpdateBookRequest{Title: &title})
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestService_PopularBooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	popular := cache.NewRedisPopularCache(client, time.Minute)

	svc, repo := newService(t, service.WithCache(popular))
	books := []model.Book{{ID: "b1", Views: 10}, {ID: "b2", Views: 3}}

	_, err := svc.PopularBooks(ctx, 0)
	require.ErrorIs(t, err, errs.ErrInvalidLimit)

	repo.EXPECT().PopularBooks(ctx, 10).Return(books, nil).Times(1)
	got, err := svc.PopularBooks(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, books, got)

	// second call is a cache hit
	got, err = svc.PopularBooks(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, books, got)

	repo.EXPECT().PopularBooks(ctx, service.MaxPopularLimit).Return(books, nil)
	_, err = svc.PopularBooks(ctx, 1000)
	require.NoError(t, err)

	// a catalog change evicts every cached limit
	repo.EXPECT().DeleteBook(ctx, "b2").Return(nil)
	_, err = svc.DeleteBook(ctx, "b2")
	require.NoError(t, err)

	repo.EXPECT().PopularBooks(ctx, 10).Return(books[:1], nil)
	got, err = svc.PopularBooks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestService_Dashboard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc, repo := newService(t, service.WithClock(func() time.Time { return now }))

	repo.EXPECT().BookStats(gomock.Any()).Return(model.BookStats{
		TotalBooks:   3,
		TotalRatings: 4,
		RatingSum:    14,
		TotalViews:   25,
		AveragePrice: 9.5,
	}, nil)
	repo.EXPECT().UserStats(gomock.Any(), now.Add(-7*24*time.Hour)).Return(model.UserStats{
		TotalUsers:  5,
		TotalAdmins: 1,
		ActiveUsers: 2,
	}, nil)

	got, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, model.Dashboard{
		TotalBooks:    3,
		TotalUsers:    5,
		TotalAdmins:   1,
		TotalRatings:  4,
		AverageRating: 3.5,
		TotalViews:    25,
		AveragePrice:  9.5,
		ActiveUsers7d: 2,
		GeneratedAt:   now,
	}, got)
}

func TestService_Dashboard_Error(t *testing.T) {
	t.Parallel()
	svc, repo := newService(t)
	repo.EXPECT().BookStats(gomock.Any()).Return(model.BookStats{}, errors.New("db down"))
	repo.EXPECT().UserStats(gomock.Any(), gomock.Any()).Return(model.UserStats{}, nil).AnyTimes()

	_, err := svc.Dashboard(context.Background())
	require.Error(t, err)
}

func TestService_ConvertPdfURL(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	_, err := svc.ConvertPdfURL("  ")
	require.ErrorIs(t, err, errs.ErrEmptyURL)

	info, err := svc.ConvertPdfURL("https://drive.google.com/open?id=XYZ")
	require.NoError(t, err)
	require.Equal(t, model.PdfURLInfo{
		Original:    "https://drive.google.com/open?id=XYZ",
		DirectURL:   "https://drive.google.com/uc?export=view&id=XYZ",
		DriveFileID: "XYZ",
		EmbedURL:    "https://drive.google.com/file/d/XYZ/preview",
	}, info)
}

func TestService_CheckPdfURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var (
		mu     sync.Mutex
		status = http.StatusOK
		calls  int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		require.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	svc, _ := newService(t,
		service.WithFileHosts("127.0.0.1"),
		service.WithCircuitBreaker(func() circuit_breaker.CircuitBreaker {
			return circuit_breaker.New(2, time.Hour, 0.5, 1)
		}),
		service.WithHTTPClient(srv.Client()))
	cb := svc.Breaker("127.0.0.1")
	require.NotNil(t, cb)

	got, err := svc.CheckPdfURL(ctx, srv.URL+"/book.pdf")
	require.NoError(t, err)
	require.True(t, got.Reachable)
	require.Equal(t, http.StatusOK, got.Status)

	mu.Lock()
	status = http.StatusNotFound
	mu.Unlock()
	got, err = svc.CheckPdfURL(ctx, srv.URL+"/missing.pdf")
	require.NoError(t, err)
	require.False(t, got.Reachable)
	require.Equal(t, http.StatusNotFound, got.Status)

	mu.Lock()
	status = http.StatusBadGateway
	mu.Unlock()
	got, err = svc.CheckPdfURL(ctx, srv.URL+"/book.pdf")
	require.NoError(t, err)
	require.False(t, got.Reachable)
	require.Equal(t, circuit_breaker.Open, cb.State())
	require.Equal(t, circuit_breaker.Closed, svc.Breaker("drive.google.com").State(), "other hosts keep their own breaker")

	mu.Lock()
	before := calls
	mu.Unlock()
	got, err = svc.CheckPdfURL(ctx, srv.URL+"/book.pdf")
	require.NoError(t, err)
	require.False(t, got.Reachable)
	mu.Lock()
	require.Equal(t, before, calls, "open breaker must not call out")
	mu.Unlock()

	_, err = svc.CheckPdfURL(ctx, "")
	require.ErrorIs(t, err, errs.ErrEmptyURL)
}

func TestService_CheckPdfURL_RefusesOtherHosts(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	for _, link := range []string{
		"http://127.0.0.1:8080/book.pdf",
		"http://localhost/book.pdf",
		"http://[::1]/book.pdf",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.5/book.pdf",
		"https://example.com/book.pdf",
		"https://drive.google.com.evil.io/book.pdf",
		"file:///etc/passwd",
	} {
		_, err := svc.CheckPdfURL(context.Background(), link)
		require.ErrorIs(t, err, errs.ErrFileHost, link)
	}
	require.Nil(t, svc.Breaker("localhost"))
}

func TestService_CheckPdfURL_PrivateAddressNotDialed(t *testing.T) {
	t.Parallel()

	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	t.Cleanup(srv.Close)

	// the host passes the allow list but the default client refuses loopback
	svc, _ := newService(t, service.WithFileHosts("127.0.0.1"))
	got, err := svc.CheckPdfURL(context.Background(), srv.URL+"/book.pdf")
	require.NoError(t, err)
	require.False(t, got.Reachable)
	require.Zero(t, got.Status)
	require.Equal(t, circuit_breaker.Closed, svc.Breaker("127.0.0.1").State())

	mu.Lock()
	require.Zero(t, calls)
	mu.Unlock()
}

func TestService_CheckPdfURL_RedirectOffHost(t *testing.T) {
	t.Parallel()

	var targetCalls int
	var mu sync.Mutex
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		targetCalls++
		mu.Unlock()
	}))
	t.Cleanup(target.Close)
	targetURL, err := url.Parse(target.URL)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://localhost:"+targetURL.Port()+"/internal", http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	svc, _ := newService(t, service.WithFileHosts("127.0.0.1"), service.WithHTTPClient(srv.Client()))
	got, err := svc.CheckPdfURL(context.Background(), srv.URL+"/book.pdf")
	require.NoError(t, err)
	require.False(t, got.Reachable)

	mu.Lock()
	require.Zero(t, targetCalls)
	mu.Unlock()
}
