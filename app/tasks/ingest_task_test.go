package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lysyi3m/tracker-relay/app/tracker"
)

func TestIngestTaskEndToEnd(t *testing.T) {
	store := NewMockStore()
	client := &MockFeedClient{posts: []tracker.BlogPost{day3Post()}, fixes: fixesAround()}
	services, registry, sender := newTestServices(client, store)

	task := NewIngestTask(services)
	if task.GetType() != TaskTypeIngest || task.GetTrackerName() != "kalea" {
		t.Errorf("Unexpected task identity: %s %s", task.GetType(), task.GetTrackerName())
	}

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	post, err := store.GetPost(context.Background(), "42")
	if err != nil {
		t.Fatalf("Expected post 42 to be stored, got: %v", err)
	}
	if post.Content != "All well" {
		t.Errorf("Expected content 'All well', got '%s'", post.Content)
	}
	if post.Location == nil || post.Location.Latitude != 21.1 {
		t.Errorf("Expected location from the preceding fix, got %+v", post.Location)
	}

	photo, ok := store.photos["abc"]
	if !ok {
		t.Fatal("Expected photo abc to be stored")
	}
	if photo.Post.Ref != "42" {
		t.Errorf("Expected photo to reference post 42, got '%s'", photo.Post.Ref)
	}

	if len(registry.fixes) != 4 || len(registry.posts) != 1 {
		t.Errorf("Expected 4 fixes and 1 post recorded, got %d and %d", len(registry.fixes), len(registry.posts))
	}

	messages := sender.sent()
	if len(messages) != 2 {
		t.Fatalf("Expected 2 texts, got %d", len(messages))
	}
	recipients := map[string]bool{}
	for _, msg := range messages {
		recipients[msg.To] = true
		if !strings.HasSuffix(msg.Body, "Day 3\n\nAll well") {
			t.Errorf("Unexpected body: %q", msg.Body)
		}
		if len(msg.MediaURLs) != 1 || msg.MediaURLs[0] != "http://x.test/img/abc.jpg" {
			t.Errorf("Unexpected media: %v", msg.MediaURLs)
		}
	}
	if !recipients["+15550001111"] || !recipients["+445550002222"] {
		t.Errorf("Unexpected recipients: %v", recipients)
	}

	run, ok := services.Status.LastIngest()
	if !ok {
		t.Fatal("Expected ingest status to be recorded")
	}
	expected := CycleSummary{NewFixes: 4, NewPosts: 1, Photos: 1, TextsSent: 2}
	if run.Summary != expected || run.Error != "" {
		t.Errorf("Expected summary %+v, got %+v (error %q)", expected, run.Summary, run.Error)
	}
}

func TestIngestTaskSMSDisabled(t *testing.T) {
	store := NewMockStore()
	client := &MockFeedClient{posts: []tracker.BlogPost{day3Post()}, fixes: fixesAround()}
	services, registry, sender := newTestServices(client, store)
	services.SMSEnabled = false

	if err := NewIngestTask(services).Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(sender.sent()) != 0 {
		t.Errorf("Expected no texts with SMS disabled, got %d", len(sender.sent()))
	}
	if len(registry.posts) != 1 {
		t.Errorf("Expected the post to be recorded, got %d", len(registry.posts))
	}

	run, _ := services.Status.LastIngest()
	if run.Summary.TextsSent != 0 {
		t.Errorf("Expected 0 texts sent with SMS disabled, got %d", run.Summary.TextsSent)
	}
	if run.Summary.NewPosts != 1 {
		t.Errorf("Expected 1 new post, got %d", run.Summary.NewPosts)
	}
}

func TestIngestTaskSecondCycleIsQuiet(t *testing.T) {
	store := NewMockStore()
	client := &MockFeedClient{posts: []tracker.BlogPost{day3Post()}, fixes: fixesAround()}
	services, registry, sender := newTestServices(client, store)

	if err := NewIngestTask(services).Execute(context.Background()); err != nil {
		t.Fatalf("First cycle failed: %v", err)
	}
	writes := len(store.operations())

	if err := NewIngestTask(services).Execute(context.Background()); err != nil {
		t.Fatalf("Second cycle failed: %v", err)
	}

	if len(store.operations()) != writes {
		t.Errorf("Expected no writes on the second cycle, got %v", store.operations()[writes:])
	}
	if len(registry.fixes) != 4 || len(registry.posts) != 1 {
		t.Errorf("Expected nothing new recorded, got %d fixes and %d posts", len(registry.fixes), len(registry.posts))
	}
	if len(sender.sent()) != 2 {
		t.Errorf("Expected no additional texts, got %d total", len(sender.sent()))
	}

	run, _ := services.Status.LastIngest()
	if run.Summary != (CycleSummary{}) {
		t.Errorf("Expected empty summary, got %+v", run.Summary)
	}
}

func TestIngestTaskOnlyNewFixes(t *testing.T) {
	store := NewMockStore()
	fixes := fixesAround()
	client := &MockFeedClient{fixes: fixes[:2]}
	services, registry, _ := newTestServices(client, store)

	if err := NewIngestTask(services).Execute(context.Background()); err != nil {
		t.Fatalf("First cycle failed: %v", err)
	}

	client.fixes = fixes
	if err := NewIngestTask(services).Execute(context.Background()); err != nil {
		t.Fatalf("Second cycle failed: %v", err)
	}

	if len(registry.fixes) != 4 {
		t.Fatalf("Expected 4 recorded fixes, got %d", len(registry.fixes))
	}
	if registry.fixes[2].Time != fixes[2].Time || registry.fixes[3].Time != fixes[3].Time {
		t.Error("Expected the new fixes to be appended in feed order")
	}
}

func TestIngestTaskFailingWrite(t *testing.T) {
	store := NewMockStore()
	store.failOp = "createIfNotExists:abc"
	client := &MockFeedClient{posts: []tracker.BlogPost{day3Post()}, fixes: fixesAround()}
	services, registry, sender := newTestServices(client, store)

	err := NewIngestTask(services).Execute(context.Background())
	if err == nil {
		t.Fatal("Expected error from failing write")
	}

	if registry.records != 0 {
		t.Errorf("Expected nothing recorded in the index, got %d records", registry.records)
	}
	if len(sender.sent()) != 0 {
		t.Errorf("Expected no texts, got %d", len(sender.sent()))
	}

	run, ok := services.Status.LastIngest()
	if !ok || run.Error == "" {
		t.Error("Expected failure to be recorded in status")
	}
}

func TestIngestTaskFetchFailure(t *testing.T) {
	store := NewMockStore()
	client := &MockFeedClient{postsErr: tracker.ErrUnexpectedStatus}
	services, registry, _ := newTestServices(client, store)

	err := NewIngestTask(services).Execute(context.Background())
	if !errors.Is(err, tracker.ErrUnexpectedStatus) {
		t.Fatalf("Expected wrapped fetch error, got: %v", err)
	}
	if len(store.operations()) != 0 || registry.records != 0 {
		t.Error("Expected no writes after a fetch failure")
	}
}

func TestIngestTaskCountsDroppedPhotos(t *testing.T) {
	store := NewMockStore()
	post := day3Post()
	post.Raw = "Hi ![Photo|big](http://x.test/a.jpg) ![Photo|1x1](http://x.test/ok.png)"
	client := &MockFeedClient{posts: []tracker.BlogPost{post}, fixes: fixesAround()}
	services, _, _ := newTestServices(client, store)
	services.Subscribers = nil

	if err := NewIngestTask(services).Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	run, _ := services.Status.LastIngest()
	if run.Summary.Photos != 1 || run.Summary.DroppedPhotos != 1 {
		t.Errorf("Expected 1 photo and 1 dropped, got %+v", run.Summary)
	}
	if run.Summary.TextsSent != 0 {
		t.Errorf("Expected no texts without subscribers, got %d", run.Summary.TextsSent)
	}
}

func TestIngestTaskCancelled(t *testing.T) {
	services, _, _ := newTestServices(&MockFeedClient{}, NewMockStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewIngestTask(services).Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}
