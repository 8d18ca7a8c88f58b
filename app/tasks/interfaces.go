package tasks

import (
	"context"

	"github.com/lysyi3m/tracker-relay/app/tracker"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to drive the ingest and
// reconcile cycles.
// Example usage:
//
//	scheduler := NewScheduler(services)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.TriggerIngest()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	TriggerIngest() error
	TriggerReconcile() error
}

// FeedClient reads the tracking provider.
type FeedClient interface {
	FetchFixes(ctx context.Context, routeURL string) ([]tracker.LocationFix, error)
	FetchPosts(ctx context.Context, blogURL string) ([]tracker.BlogPost, error)
}
