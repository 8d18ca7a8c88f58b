package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/tracker-relay/app/content"
	"github.com/lysyi3m/tracker-relay/app/notify"
	"github.com/lysyi3m/tracker-relay/app/tracker"
)

// MockFeedClient returns fixed upstream data
type MockFeedClient struct {
	fixes    []tracker.LocationFix
	posts    []tracker.BlogPost
	fixesErr error
	postsErr error
}

func (m *MockFeedClient) FetchFixes(ctx context.Context, routeURL string) ([]tracker.LocationFix, error) {
	return m.fixes, m.fixesErr
}

func (m *MockFeedClient) FetchPosts(ctx context.Context, blogURL string) ([]tracker.BlogPost, error) {
	return m.posts, m.postsErr
}

// MockRegistry keeps recorded ids in memory
type MockRegistry struct {
	mu        sync.Mutex
	fixes     []tracker.LocationFix
	posts     []tracker.BlogPost
	records   int
	recordErr error
}

func (m *MockRegistry) SeenFixes(ctx context.Context) (tracker.SeenSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.fixes))
	for _, f := range m.fixes {
		ids = append(ids, tracker.FixKey(f))
	}
	return tracker.NewSeenSet(ids...), nil
}

func (m *MockRegistry) SeenPosts(ctx context.Context) (tracker.SeenSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.posts))
	for _, p := range m.posts {
		ids = append(ids, p.ID)
	}
	return tracker.NewSeenSet(ids...), nil
}

func (m *MockRegistry) Record(ctx context.Context, fixes []tracker.LocationFix, posts []tracker.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.records++
	m.fixes = append(m.fixes, fixes...)
	m.posts = append(m.posts, posts...)
	return nil
}

// MockSubscriberRepository serves a fixed phone list
type MockSubscriberRepository struct {
	phones []string
}

func (m *MockSubscriberRepository) ListPhones(ctx context.Context) ([]string, error) {
	return m.phones, nil
}

func (m *MockSubscriberRepository) GetSubscriberCount(ctx context.Context) (int, error) {
	return len(m.phones), nil
}

func (m *MockSubscriberRepository) AddSubscriber(ctx context.Context, phone string) (bool, error) {
	m.phones = append(m.phones, phone)
	return true, nil
}

// MockSender captures messages
type MockSender struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (m *MockSender) Send(ctx context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockSender) sent() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.messages...)
}

// MockStore is an in-memory content store that logs every operation
type MockStore struct {
	mu     sync.Mutex
	posts  map[string]content.Post
	photos map[string]content.Photo
	ops    []string
	failOp string
}

func NewMockStore() *MockStore {
	return &MockStore{
		posts:  map[string]content.Post{},
		photos: map[string]content.Photo{},
	}
}

func (m *MockStore) log(op string) error {
	m.ops = append(m.ops, op)
	if m.failOp != "" && strings.HasPrefix(op, m.failOp) {
		return errors.New("mock store failure: " + op)
	}
	return nil
}

func (m *MockStore) operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *MockStore) GetPost(ctx context.Context, id string) (*content.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	return &post, nil
}

func (m *MockStore) Query(ctx context.Context, f content.Filter, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch dst := out.(type) {
	case *[]content.Post:
		for _, p := range m.posts {
			if f.ID == "" || f.ID == p.ID {
				*dst = append(*dst, p)
			}
		}
		sort.Slice(*dst, func(i, j int) bool { return (*dst)[i].ID < (*dst)[j].ID })
	case *[]content.Photo:
		for _, p := range m.photos {
			if f.PostRef == "" || f.PostRef == p.Post.Ref {
				*dst = append(*dst, p)
			}
		}
		sort.Slice(*dst, func(i, j int) bool { return (*dst)[i].ID < (*dst)[j].ID })
	default:
		return fmt.Errorf("unsupported output %T", out)
	}
	return nil
}

func (m *MockStore) CreateIfNotExists(ctx context.Context, doc content.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.log("createIfNotExists:" + doc.DocumentID()); err != nil {
		return err
	}
	switch d := doc.(type) {
	case *content.Post:
		if _, ok := m.posts[d.ID]; !ok {
			m.posts[d.ID] = *d
		}
	case *content.Photo:
		if _, ok := m.photos[d.ID]; !ok {
			m.photos[d.ID] = *d
		}
	}
	return nil
}

func (m *MockStore) CreateOrReplace(ctx context.Context, doc content.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.log("createOrReplace:" + doc.DocumentID()); err != nil {
		return err
	}
	switch d := doc.(type) {
	case *content.Post:
		m.posts[d.ID] = *d
	case *content.Photo:
		m.photos[d.ID] = *d
	}
	return nil
}

func (m *MockStore) Patch(ctx context.Context, id string, set map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, _ := set["replaceState"].(content.ReplaceState)
	if err := m.log("patch:" + id + ":" + string(state)); err != nil {
		return err
	}
	post, ok := m.posts[id]
	if !ok {
		return content.ErrNotFound
	}
	post.ReplaceState = state
	m.posts[id] = post
	return nil
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.log("delete:" + id); err != nil {
		return err
	}
	delete(m.posts, id)
	delete(m.photos, id)
	return nil
}

func (m *MockStore) DeleteByQuery(ctx context.Context, f content.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.log("deleteByQuery:" + f.GROQ()); err != nil {
		return 0, err
	}
	removed := 0
	if f.Type == content.TypePhoto {
		for id, p := range m.photos {
			if f.PostRef == "" || p.Post.Ref == f.PostRef {
				delete(m.photos, id)
				removed++
			}
		}
	}
	if f.Type == content.TypePost {
		for id := range m.posts {
			if f.ID == "" || f.ID == id {
				delete(m.posts, id)
				removed++
			}
		}
	}
	return removed, nil
}

func (m *MockStore) Close() error {
	return nil
}

var _ content.Store = (*MockStore)(nil)

func day3Post() tracker.BlogPost {
	return tracker.BlogPost{
		ID:        "42",
		Title:     "Day 3",
		Raw:       "All well ![Photo|800x600](http://x.test/img/abc.jpg))",
		HTML:      "<p>All well</p>",
		CreatedAt: time.Date(2021, 9, 10, 12, 0, 0, 0, time.UTC),
	}
}

// fixesAround returns fixes an hour apart spanning the Day 3 post.
func fixesAround() []tracker.LocationFix {
	base := time.Date(2021, 9, 10, 10, 0, 0, 0, time.UTC).Unix()
	return []tracker.LocationFix{
		{Time: base, Latitude: 21.0, Longitude: -157.0},
		{Time: base + 3600, Latitude: 21.1, Longitude: -157.1},
		{Time: base + 7200, Latitude: 21.2, Longitude: -157.2},
		{Time: base + 10800, Latitude: 21.3, Longitude: -157.3},
	}
}

func newTestServices(client *MockFeedClient, store *MockStore) (*Services, *MockRegistry, *MockSender) {
	registry := &MockRegistry{}
	sender := &MockSender{}

	services := &Services{
		Tracker: &tracker.Config{
			Name:     "kalea",
			RouteURL: "https://forecast.test/route",
			BlogURL:  "https://forecast.test/blog",
			PostLink: "https://forecast.test/t/%s",
		},
		Client:      client,
		Registry:    registry,
		Subscribers: &MockSubscriberRepository{phones: []string{"5550001111", "+445550002222"}},
		Store:       store,
		Publisher:   NewPublisher(store, time.Millisecond),
		Formatter:   notify.NewFormatter(time.UTC, "UTC"),
		SMSEnabled:  true,
		Sender:      sender,
		PhonePrefix: "+1",
		Status:      NewStatus(),
	}
	return services, registry, sender
}
