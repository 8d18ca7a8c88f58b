package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lysyi3m/tracker-relay/app/tracker"
)

// IndexRegistry implements SeenRegistry over the locations and blog_posts
// tables.
type IndexRegistry struct {
	db        *DB
	locations *LocationsTable
	posts     *BlogPostsTable
}

func NewSeenRegistry(db *DB) *IndexRegistry {
	return &IndexRegistry{
		db:        db,
		locations: NewLocationsTable(db),
		posts:     NewBlogPostsTable(db),
	}
}

func (r *IndexRegistry) SeenFixes(ctx context.Context) (tracker.SeenSet, error) {
	times, err := r.locations.GetSeenTimes(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(times))
	for _, ts := range times {
		ids = append(ids, strconv.FormatInt(ts, 10))
	}
	return tracker.NewSeenSet(ids...), nil
}

func (r *IndexRegistry) SeenPosts(ctx context.Context) (tracker.SeenSet, error) {
	ids, err := r.posts.GetSeenIDs(ctx)
	if err != nil {
		return nil, err
	}
	return tracker.NewSeenSet(ids...), nil
}

// Record appends fixes and posts in one transaction so a cycle is either
// recorded completely or not at all.
func (r *IndexRegistry) Record(ctx context.Context, fixes []tracker.LocationFix, posts []tracker.BlogPost) error {
	if len(fixes) == 0 && len(posts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if err := insertLocations(ctx, tx, fixes, now); err != nil {
		return err
	}
	if err := insertPosts(ctx, tx, posts, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index records: %w", err)
	}
	return nil
}
