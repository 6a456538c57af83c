package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/cache"
	bookstoreRepo "github.com/Astemirdum/bookstore-service/bookstore/internal/repository"
	"github.com/Astemirdum/bookstore-service/pkg/circuit_breaker"
	"github.com/Astemirdum/bookstore-service/pkg/kafka"
	"github.com/Astemirdum/bookstore-service/pkg/metrics"
)

type Service struct {
	log      *zap.Logger
	repo     bookstoreRepo.Repository
	cache    cache.PopularCache
	queue    kafka.Enqueuer
	client   *http.Client
	hosts    []string
	breakers *hostBreakers
	adminKey string
	now      func() time.Time
}

type Option func(*Service)

func WithCache(c cache.PopularCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithEnqueuer(q kafka.Enqueuer) Option {
	return func(s *Service) {
		if q != nil {
			s.queue = q
		}
	}
}

// WithAdminKey sets the secret a login must present to be promoted.
// An empty key disables promotion.
func WithAdminKey(key string) Option {
	return func(s *Service) {
		s.adminKey = key
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithCircuitBreaker sets how the breaker of each file host is built.
func WithCircuitBreaker(newCB func() circuit_breaker.CircuitBreaker) Option {
	return func(s *Service) {
		if newCB != nil {
			s.breakers = newHostBreakers(newCB)
		}
	}
}

// WithFileHosts replaces the hosts a link check may contact. Each entry
// also admits its subdomains.
func WithFileHosts(hosts ...string) Option {
	return func(s *Service) {
		s.hosts = normalizeHosts(hosts)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo bookstoreRepo.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:    log.Named("service"),
		repo:   repo,
		cache:  cache.Nop{},
		queue:  kafka.NewEnqueuer(nil),
		client: newFileHostClient(10 * time.Second),
		hosts:  normalizeHosts(DefaultFileHosts),
		breakers: newHostBreakers(func() circuit_breaker.CircuitBreaker {
			return circuit_breaker.New(20, 30*time.Second, 0.5, 2)
		}),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	client := *s.client
	client.CheckRedirect = s.checkRedirect
	s.client = &client
	return s
}

// Breaker returns the circuit breaker guarding calls to host.
func (s *Service) Breaker(host string) circuit_breaker.CircuitBreaker {
	key, ok := s.fileHost(host)
	if !ok {
		return nil
	}
	return s.breakers.get(key)
}

// publish is best effort: a broker failure never fails the request.
func (s *Service) publish(event kafka.BookEvent) {
	event.Timestamp = s.now().UTC()
	if err := s.queue.Enqueue(kafka.EventsTopic, event); err != nil {
		metrics.EventsPublished.WithLabelValues("failed").Inc()
		s.log.Warn("publish book event",
			zap.String("type", string(event.EventType)),
			zap.String("bookId", event.BookID),
			zap.Error(err))
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}

func (s *Service) invalidatePopular(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("invalidate popular cache", zap.Error(err))
	}
}

// SaveEvent records an event read back from the broker.
func (s *Service) SaveEvent(ctx context.Context, event kafka.BookEvent) error {
	return s.repo.SaveEvent(ctx, event)
}
