package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrUnexpectedStatus = errors.New("unexpected upstream status")

// Client reads the route and blog endpoints of the tracking provider.
// Decoded responses are cached for cacheTTL so cycles that overlap share a
// single fetch; returned slices must be treated as read-only.
type Client struct {
	httpClient *http.Client
	cache      *cache.Cache
	userAgent  string
	timeout    time.Duration
	now        func() time.Time
}

func NewClient(httpClient *http.Client, userAgent string, timeout, cacheTTL time.Duration) *Client {
	c := &Client{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
		now:        time.Now,
	}
	if cacheTTL > 0 {
		c.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return c
}

func (c *Client) FetchFixes(ctx context.Context, routeURL string) ([]LocationFix, error) {
	if cached, ok := c.cached("route|" + routeURL); ok {
		return cached.([]LocationFix), nil
	}

	data, err := c.fetch(ctx, routeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch route: %w", err)
	}

	var resp routeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode route: %w", err)
	}

	fixes := make([]LocationFix, 0, len(resp.Route))
	for _, p := range resp.Route {
		fixes = append(fixes, LocationFix{
			Time:              p.T,
			Latitude:          p.P.Lat,
			Longitude:         p.P.Lon,
			Course:            p.Bearing,
			BoatSpeed:         p.BSP,
			TrueWindAngle:     p.TWA,
			TrueWindDirection: p.TWD,
			TrueWindSpeed:     p.TWS,
			Gust:              p.Gust,
			IsSample:          p.IsSample,
		})
	}

	c.store("route|"+routeURL, fixes)
	return fixes, nil
}

func (c *Client) FetchPosts(ctx context.Context, blogURL string) ([]BlogPost, error) {
	if cached, ok := c.cached("blog|" + blogURL); ok {
		return cached.([]BlogPost), nil
	}

	data, err := c.fetch(ctx, blogURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blog: %w", err)
	}

	var resp blogResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode blog: %w", err)
	}

	posts := make([]BlogPost, 0, len(resp.Posts))
	for _, e := range resp.Posts {
		posts = append(posts, BlogPost{
			ID:        strconv.FormatInt(e.TopicID, 10),
			Title:     e.Title,
			Raw:       e.Raw,
			HTML:      e.Cooked,
			CreatedAt: e.CreatedAt,
		})
	}

	c.store("blog|"+blogURL, posts)
	return posts, nil
}

func (c *Client) cached(key string) (any, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Client) store(key string, value any) {
	if c.cache != nil {
		c.cache.Set(key, value, cache.DefaultExpiration)
	}
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	q := u.Query()
	q.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
