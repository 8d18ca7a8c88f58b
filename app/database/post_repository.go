package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/tracker-relay/app/tracker"
)

// BlogPostsTable implements PostRepository over the blog_posts table
type BlogPostsTable struct {
	db *DB
}

// NewBlogPostsTable creates a new post repository
func NewBlogPostsTable(db *DB) *BlogPostsTable {
	return &BlogPostsTable{db: db}
}

// GetSeenIDs returns every recorded post id once, in first-recorded order.
func (r *BlogPostsTable) GetSeenIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT post_id FROM blog_posts
		GROUP BY post_id
		ORDER BY MIN(id)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query post ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan post id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post ids: %w", err)
	}

	return ids, nil
}

func (r *BlogPostsTable) GetPostCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT post_id) FROM blog_posts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

func insertPosts(ctx context.Context, ex execer, posts []tracker.BlogPost, recordedAt time.Time) error {
	for _, post := range posts {
		_, err := ex.ExecContext(ctx, `
			INSERT INTO blog_posts (post_id, title, raw, created_at, recorded_at)
			VALUES (?, ?, ?, ?, ?)
		`, post.ID, post.Title, post.Raw, post.CreatedAt.UTC().Format(time.RFC3339), recordedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert post %s: %w", post.ID, err)
		}
	}
	return nil
}
