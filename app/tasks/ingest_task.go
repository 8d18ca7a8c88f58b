package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lysyi3m/tracker-relay/app/notify"
	"github.com/lysyi3m/tracker-relay/app/tracker"
)

type IngestTask struct {
	Task
	services *Services
}

func NewIngestTask(services *Services) *IngestTask {
	return &IngestTask{
		Task:     NewTask(TaskTypeIngest, services.Tracker.Name),
		services: services,
	}
}

func (t *IngestTask) Execute(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "Tasks.Ingest")
	defer span.End()

	var summary CycleSummary
	defer func() {
		t.services.Status.recordIngest(summary, t.GetDuration(), err)
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
		attribute.Int("new_fixes", summary.NewFixes),
		attribute.Int("new_posts", summary.NewPosts),
		attribute.Int("texts_sent", summary.TextsSent),
	)

	slog.Info("Task completed",
		"type", "Ingest",
		"tracker", t.TrackerName,
		"duration", t.GetDuration(),
		"new_fixes", humanize.Comma(int64(summary.NewFixes)),
		"new_posts", summary.NewPosts,
		"photos", summary.Photos,
		"dropped_photos", summary.DroppedPhotos,
		"texts_sent", summary.TextsSent)

	return nil
}

func (t *IngestTask) run(ctx context.Context) (CycleSummary, error) {
	var summary CycleSummary
	s := t.services

	select {
	case <-ctx.Done():
		return summary, ctx.Err()
	default:
	}

	seenFixes, err := s.Registry.SeenFixes(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load recorded fixes: %w", err)
	}
	seenPosts, err := s.Registry.SeenPosts(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load recorded posts: %w", err)
	}

	fixes, err := s.Client.FetchFixes(ctx, s.Tracker.RouteURL)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch fixes: %w", err)
	}
	posts, err := s.Client.FetchPosts(ctx, s.Tracker.BlogURL)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch posts: %w", err)
	}

	newPosts := tracker.NewPosts(posts, seenPosts)
	prepared := make([]PreparedPost, 0, len(newPosts))
	for _, post := range newPosts {
		pp := s.Publisher.Prepare(post, fixes)
		summary.Photos += len(pp.Parsed.Photos)
		summary.DroppedPhotos += len(pp.Parsed.Failures)
		prepared = append(prepared, pp)
	}

	if err := s.Publisher.Publish(ctx, prepared); err != nil {
		return summary, fmt.Errorf("failed to publish posts: %w", err)
	}

	newFixes := tracker.NewFixes(fixes, seenFixes)
	if err := s.Registry.Record(ctx, newFixes, newPosts); err != nil {
		return summary, fmt.Errorf("failed to record index rows: %w", err)
	}
	summary.NewFixes = len(newFixes)
	summary.NewPosts = len(newPosts)

	sent, err := t.sendTexts(ctx, prepared)
	summary.TextsSent = sent
	if err != nil {
		return summary, fmt.Errorf("failed to send texts: %w", err)
	}

	return summary, nil
}

// sendTexts sends every new post to every subscriber and reports how many
// messages were requested. Nothing is built when SMS is disabled.
func (t *IngestTask) sendTexts(ctx context.Context, posts []PreparedPost) (int, error) {
	s := t.services
	if !s.SMSEnabled || len(posts) == 0 || s.Sender == nil || s.Subscribers == nil {
		return 0, nil
	}

	phones, err := s.Subscribers.ListPhones(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list subscribers: %w", err)
	}

	var jobs []func(context.Context) error
	for _, phone := range phones {
		to := notify.NormalizePhone(phone, s.PhonePrefix)
		for _, pp := range posts {
			msg := s.Formatter.Message(to, pp.Post, pp.Parsed, s.Tracker.PostURL(pp.Post.ID))
			jobs = append(jobs, func(ctx context.Context) error {
				return s.Sender.Send(ctx, msg)
			})
		}
	}

	if err := fanOut(ctx, 0, jobs); err != nil {
		return len(jobs), err
	}
	return len(jobs), nil
}
