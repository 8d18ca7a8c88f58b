package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/tracker-relay/app/content"
	"github.com/lysyi3m/tracker-relay/app/tracker"
)

// PreparedPost is a post parsed and matched to a fix, ready to publish.
type PreparedPost struct {
	Post     tracker.BlogPost
	Parsed   tracker.ParsedMessage
	Location *tracker.LocationFix
}

// Publisher turns upstream posts into content documents and writes them.
type Publisher struct {
	store   content.Store
	stagger time.Duration
}

func NewPublisher(store content.Store, stagger time.Duration) *Publisher {
	return &Publisher{store: store, stagger: stagger}
}

// Prepare parses post and finds the fix nearest before it. Photos that fail
// to parse are logged and left out.
func (p *Publisher) Prepare(post tracker.BlogPost, fixes []tracker.LocationFix) PreparedPost {
	parsed := tracker.ParseMessage(post.Raw)
	for _, failure := range parsed.Failures {
		slog.Warn("Dropped photo", "post", post.ID, "reason", string(failure.Reason), "token", failure.Token)
	}

	prepared := PreparedPost{Post: post, Parsed: parsed}
	if fix, ok := tracker.FindClosestFix(post.CreatedAt, fixes); ok {
		prepared.Location = &fix
	} else {
		slog.Debug("No location for post", "post", post.ID, "created_at", post.CreatedAt)
	}
	return prepared
}

func (pp PreparedPost) PostDocument() *content.Post {
	doc := &content.Post{
		ID:          pp.Post.ID,
		Title:       pp.Post.Title,
		Content:     pp.Parsed.Text,
		HTML:        pp.Post.HTML,
		CreatedAt:   pp.Post.CreatedAt,
		ContentHash: tracker.ContentHash(pp.Post.Title, pp.Post.HTML),
	}
	if fix := pp.Location; fix != nil {
		doc.Location = &content.Location{
			Time:              fix.Time,
			Latitude:          fix.Latitude,
			Longitude:         fix.Longitude,
			Course:            fix.Course,
			BoatSpeed:         fix.BoatSpeed,
			TrueWindAngle:     fix.TrueWindAngle,
			TrueWindDirection: fix.TrueWindDirection,
			TrueWindSpeed:     fix.TrueWindSpeed,
			Gust:              fix.Gust,
		}
	}
	return doc
}

func (pp PreparedPost) PhotoDocuments() []*content.Photo {
	docs := make([]*content.Photo, 0, len(pp.Parsed.Photos))
	for _, photo := range pp.Parsed.Photos {
		docs = append(docs, &content.Photo{
			ID:     photo.ID,
			URL:    photo.URL,
			Width:  photo.Width,
			Height: photo.Height,
			Alt:    pp.Post.Title,
			Post:   content.NewPostReference(pp.Post.ID),
		})
	}
	return docs
}

// Publish writes each post and its photos with create-if-absent. Writes run
// concurrently, the nth starting n staggers after the first.
func (p *Publisher) Publish(ctx context.Context, posts []PreparedPost) error {
	var writes []func(context.Context) error
	for _, pp := range posts {
		post := pp.PostDocument()
		writes = append(writes, func(ctx context.Context) error {
			return p.store.CreateIfNotExists(ctx, post)
		})
		for _, photo := range pp.PhotoDocuments() {
			writes = append(writes, func(ctx context.Context) error {
				return p.store.CreateIfNotExists(ctx, photo)
			})
		}
	}
	return fanOut(ctx, p.stagger, writes)
}

// fanOut runs jobs concurrently and returns the first error. The first
// failure cancels jobs that have not started yet.
func fanOut(ctx context.Context, stagger time.Duration, jobs []func(context.Context) error) error {
	if len(jobs) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, job := range jobs {
		wg.Add(1)
		go func(delay time.Duration, job func(context.Context) error) {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-ctx.Done():
					fail(ctx.Err())
					return
				case <-timer.C:
				}
			}

			if err := job(ctx); err != nil {
				fail(err)
			}
		}(time.Duration(i)*stagger, job)
	}

	wg.Wait()
	return firstErr
}
