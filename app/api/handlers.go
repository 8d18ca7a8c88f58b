package api

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/tracker-relay/app/content"
	"github.com/lysyi3m/tracker-relay/app/notify"
	"github.com/lysyi3m/tracker-relay/app/tasks"
	"github.com/lysyi3m/tracker-relay/app/tracker"
)

func NewHandler(trackerConfig *tracker.Config, repos Repositories, store content.Store,
	generator GeneratorInterface, scheduler tasks.TaskSchedulerInterface,
	status *tasks.Status, phonePrefix string) *Handler {
	return &Handler{
		tracker:     trackerConfig,
		locations:   repos.Locations,
		posts:       repos.Posts,
		subscribers: repos.Subscribers,
		store:       store,
		generator:   generator,
		scheduler:   scheduler,
		status:      status,
		phonePrefix: phonePrefix,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	ctx := c.Request.Context()

	var posts []content.Post
	if err := h.store.Query(ctx, content.Filter{Type: content.TypePost}, &posts); err != nil {
		slog.Error("Content store error", "operation", "query_posts", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	var photos []content.Photo
	if err := h.store.Query(ctx, content.Filter{Type: content.TypePhoto}, &photos); err != nil {
		slog.Error("Content store error", "operation", "query_photos", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	entries := feedEntries(posts, photos, h.tracker.PostURL)

	rss, err := h.generator.Run(tracker.Channel{Title: h.tracker.Name}, entries)
	if err != nil {
		slog.Error("RSS generation error", "tracker", h.tracker.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(entries)))
	c.Header("X-Feed-Name", h.tracker.Name)

	c.String(http.StatusOK, rss)
}

// feedEntries renders posts newest first. Each entry takes the first photo
// of its post, by id, as the enclosure.
func feedEntries(posts []content.Post, photos []content.Photo, link func(string) string) []tracker.FeedEntry {
	sort.SliceStable(photos, func(i, j int) bool { return photos[i].ID < photos[j].ID })
	images := make(map[string]string)
	for _, photo := range photos {
		if _, ok := images[photo.Post.Ref]; !ok {
			images[photo.Post.Ref] = photo.URL
		}
	}

	sort.SliceStable(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })

	entries := make([]tracker.FeedEntry, 0, len(posts))
	for _, post := range posts {
		entry := tracker.FeedEntry{
			ID:        post.ID,
			Title:     post.Title,
			Link:      link(post.ID),
			Text:      post.Content,
			HTML:      post.HTML,
			CreatedAt: post.CreatedAt,
			UpdatedAt: post.UpdatedAt,
			ImageURL:  images[post.ID],
		}
		if post.Location != nil {
			entry.Location = &tracker.LocationFix{
				Time:      post.Location.Time,
				Latitude:  post.Location.Latitude,
				Longitude: post.Location.Longitude,
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"tracker":   h.tracker.Name,
	}

	if count, err := h.locations.GetLocationCount(c.Request.Context()); err == nil {
		health["locations"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := map[string]interface{}{
		"tracker": h.tracker.Name,
	}

	if count, err := h.locations.GetLocationCount(ctx); err == nil {
		stats["locations"] = humanize.Comma(int64(count))
	} else {
		slog.Error("Database error", "operation", "get_location_count", "error", err)
	}
	if count, err := h.posts.GetPostCount(ctx); err == nil {
		stats["posts"] = humanize.Comma(int64(count))
	} else {
		slog.Error("Database error", "operation", "get_post_count", "error", err)
	}
	if count, err := h.subscribers.GetSubscriberCount(ctx); err == nil {
		stats["subscribers"] = humanize.Comma(int64(count))
	} else {
		slog.Error("Database error", "operation", "get_subscriber_count", "error", err)
	}

	if latest, err := h.locations.GetLatestLocation(ctx); err == nil && latest != nil {
		stats["latest_location"] = map[string]interface{}{
			"time":      latest.At().Format(time.RFC3339),
			"age":       humanize.Time(latest.At()),
			"latitude":  latest.Latitude,
			"longitude": latest.Longitude,
		}
	}

	if run, ok := h.status.LastIngest(); ok {
		stats["last_ingest"] = map[string]interface{}{
			"finished_at": run.FinishedAt.Format(time.RFC3339),
			"ago":         humanize.Time(run.FinishedAt),
			"duration":    run.Duration.String(),
			"error":       run.Error,
			"new_fixes":   run.Summary.NewFixes,
			"new_posts":   run.Summary.NewPosts,
			"photos":      run.Summary.Photos,
			"dropped":     run.Summary.DroppedPhotos,
			"texts_sent":  run.Summary.TextsSent,
		}
	}

	if run, ok := h.status.LastReconcile(); ok {
		stats["last_reconcile"] = map[string]interface{}{
			"finished_at": run.FinishedAt.Format(time.RFC3339),
			"ago":         humanize.Time(run.FinishedAt),
			"duration":    run.Duration.String(),
			"error":       run.Error,
			"checked":     run.Summary.Checked,
			"unchanged":   run.Summary.Unchanged,
			"missing":     run.Summary.Missing,
			"republished": run.Summary.Republished,
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APITriggerIngest(c *gin.Context) {
	if err := h.scheduler.TriggerIngest(); err != nil {
		slog.Error("Error enqueueing ingest task", "tracker", h.tracker.Name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue ingest task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Ingest task enqueued",
	})
}

func (h *Handler) APITriggerReconcile(c *gin.Context) {
	if err := h.scheduler.TriggerReconcile(); err != nil {
		slog.Error("Error enqueueing reconcile task", "tracker", h.tracker.Name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue reconcile task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Reconcile task enqueued",
	})
}

func (h *Handler) APIAddSubscriber(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing phone parameter"})
		return
	}

	phone := notify.NormalizePhone(req.Phone, h.phonePrefix)
	added, err := h.subscribers.AddSubscriber(c.Request.Context(), phone)
	if err != nil {
		slog.Error("Database error", "operation", "add_subscriber", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
		slog.Info("Subscriber added", "tracker", h.tracker.Name)
	}

	c.JSON(status, gin.H{
		"success": true,
		"added":   added,
		"phone":   phone,
	})
}

// APIClearContent removes every photo and then every post from the content
// store. The index is left alone, so cleared posts are not republished.
func (h *Handler) APIClearContent(c *gin.Context) {
	ctx := c.Request.Context()

	photos, err := h.store.DeleteByQuery(ctx, content.Filter{Type: content.TypePhoto})
	if err != nil {
		slog.Error("Content store error", "operation", "delete_photos", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete photos", "details": err.Error()})
		return
	}

	posts, err := h.store.DeleteByQuery(ctx, content.Filter{Type: content.TypePost})
	if err != nil {
		slog.Error("Content store error", "operation", "delete_posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete posts", "details": err.Error()})
		return
	}

	slog.Warn("Content store cleared", "photos", photos, "posts", posts)

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"photos_deleted": photos,
		"posts_deleted":  posts,
	})
}
