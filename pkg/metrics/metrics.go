package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookstore"

var (
	RatingsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratings_submitted_total",
		Help:      "Ratings applied to a book.",
	})
	RatingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rating_conflicts_total",
		Help:      "Rating compare-and-swap attempts lost to a concurrent writer.",
	})
	BookViews = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "book_views_total",
		Help:      "Single-book fetches that bumped the view counter.",
	})
	PopularCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "popular_cache_requests_total",
		Help:      "Popular-books cache lookups by result.",
	}, []string{"result"})
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Book events handed to Kafka by outcome.",
	}, []string{"outcome"})
)
