package content

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is the headless content store posts and photos are published to.
type Store interface {
	GetPost(ctx context.Context, id string) (*Post, error)
	// Query decodes every document matching f into out, which must be a
	// pointer to a slice.
	Query(ctx context.Context, f Filter, out any) error

	CreateIfNotExists(ctx context.Context, doc Document) error
	CreateOrReplace(ctx context.Context, doc Document) error
	Patch(ctx context.Context, id string, set map[string]any) error
	Delete(ctx context.Context, id string) error
	// DeleteByQuery removes every matching document and reports how many
	// were removed.
	DeleteByQuery(ctx context.Context, f Filter) (int, error)

	Close() error
}

func getPost(ctx context.Context, s Store, id string) (*Post, error) {
	var posts []Post
	if err := s.Query(ctx, Filter{Type: TypePost, ID: id}, &posts); err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", id, err)
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

func stampType(doc Document) {
	switch d := doc.(type) {
	case *Post:
		d.Type = TypePost
	case *Photo:
		d.Type = TypePhoto
	}
}
