package database

import (
	"context"

	"github.com/lysyi3m/tracker-relay/app/tracker"
)

type LocationRepository interface {
	GetSeenTimes(ctx context.Context) ([]int64, error)
	GetLocationCount(ctx context.Context) (int, error)
	GetLatestLocation(ctx context.Context) (*tracker.LocationFix, error)
}

type PostRepository interface {
	GetSeenIDs(ctx context.Context) ([]string, error)
	GetPostCount(ctx context.Context) (int, error)
}

type SubscriberRepository interface {
	ListPhones(ctx context.Context) ([]string, error)
	GetSubscriberCount(ctx context.Context) (int, error)

	AddSubscriber(ctx context.Context, phone string) (bool, error)
}

// SeenRegistry is the single record of what has already been ingested.
// Ingestion reads membership from it and records new fixes and posts with
// Record once their content has been published.
type SeenRegistry interface {
	SeenFixes(ctx context.Context) (tracker.SeenSet, error)
	SeenPosts(ctx context.Context) (tracker.SeenSet, error)

	Record(ctx context.Context, fixes []tracker.LocationFix, posts []tracker.BlogPost) error
}
