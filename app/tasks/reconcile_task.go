package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lysyi3m/tracker-relay/app/content"
	"github.com/lysyi3m/tracker-relay/app/tracker"
)

// ReconcileTask republishes posts whose title or HTML changed upstream.
type ReconcileTask struct {
	Task
	services *Services
	now      func() time.Time
}

func NewReconcileTask(services *Services) *ReconcileTask {
	return &ReconcileTask{
		Task:     NewTask(TaskTypeReconcile, services.Tracker.Name),
		services: services,
		now:      time.Now,
	}
}

func (t *ReconcileTask) Execute(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "Tasks.Reconcile")
	defer span.End()

	var summary ReconcileSummary
	defer func() {
		t.services.Status.recordReconcile(summary, t.GetDuration(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	summary, err = t.run(ctx)
	if err != nil {
		return err
	}

	span.SetAttributes(
		attribute.Int("checked", summary.Checked),
		attribute.Int("republished", summary.Republished),
	)

	slog.Info("Task completed",
		"type", "Reconcile",
		"tracker", t.TrackerName,
		"duration", t.GetDuration(),
		"checked", summary.Checked,
		"unchanged", summary.Unchanged,
		"missing", summary.Missing,
		"republished", summary.Republished)

	return nil
}

func (t *ReconcileTask) run(ctx context.Context) (ReconcileSummary, error) {
	var summary ReconcileSummary
	s := t.services

	select {
	case <-ctx.Done():
		return summary, ctx.Err()
	default:
	}

	posts, err := s.Client.FetchPosts(ctx, s.Tracker.BlogURL)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch posts: %w", err)
	}
	fixes, err := s.Client.FetchFixes(ctx, s.Tracker.RouteURL)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch fixes: %w", err)
	}

	for _, post := range posts {
		summary.Checked++

		stored, err := s.Store.GetPost(ctx, post.ID)
		if errors.Is(err, content.ErrNotFound) {
			summary.Missing++
			slog.Info("Post not published, skipping", "post", post.ID)
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("failed to get post %s: %w", post.ID, err)
		}

		if !needsRepublish(post, stored) {
			summary.Unchanged++
			continue
		}

		if err := t.republish(ctx, s.Publisher.Prepare(post, fixes), stored); err != nil {
			return summary, fmt.Errorf("failed to republish post %s: %w", post.ID, err)
		}
		summary.Republished++
	}

	return summary, nil
}

func needsRepublish(post tracker.BlogPost, stored *content.Post) bool {
	if stored.ReplaceState == content.ReplaceStatePending {
		return true
	}
	return post.Title != stored.Title || post.HTML != stored.HTML
}

// republish replaces a post and its photos. The post carries
// replaceState=pending-replace until every step has completed, so an
// interrupted run is picked up again on the next pass.
func (t *ReconcileTask) republish(ctx context.Context, pp PreparedPost, stored *content.Post) error {
	s := t.services
	id := pp.Post.ID

	slog.Info("Republishing post", "post", id, "title", pp.Post.Title, "resumed", stored.ReplaceState == content.ReplaceStatePending)

	if err := s.Store.Patch(ctx, id, map[string]any{"replaceState": content.ReplaceStatePending}); err != nil {
		return fmt.Errorf("failed to mark post: %w", err)
	}

	removed, err := s.Store.DeleteByQuery(ctx, content.Filter{Type: content.TypePhoto, PostRef: id})
	if err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}

	updatedAt := t.now().UTC()
	doc := pp.PostDocument()
	doc.UpdatedAt = &updatedAt
	doc.ReplaceState = content.ReplaceStatePending
	if err := s.Store.CreateOrReplace(ctx, doc); err != nil {
		return fmt.Errorf("failed to replace post: %w", err)
	}

	var writes []func(context.Context) error
	for _, photo := range pp.PhotoDocuments() {
		writes = append(writes, func(ctx context.Context) error {
			return s.Store.CreateOrReplace(ctx, photo)
		})
	}
	if err := fanOut(ctx, s.Publisher.stagger, writes); err != nil {
		return fmt.Errorf("failed to create photos: %w", err)
	}

	if err := s.Store.Patch(ctx, id, map[string]any{"replaceState": content.ReplaceStateReplaced}); err != nil {
		return fmt.Errorf("failed to complete replace: %w", err)
	}

	slog.Debug("Post republished", "post", id, "photos_removed", removed, "photos_created", len(writes))
	return nil
}
