package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

type SanityConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string // e.g. v2021-11-23
	Token      string
	BaseURL    string // defaults to https://<project>.api.sanity.io
}

// SanityStore talks to the Sanity HTTP query and mutation APIs.
type SanityStore struct {
	client  *http.Client
	baseURL string
	dataset string
	token   string
}

type sanityQueryResponse struct {
	Result jsoniter.RawMessage `json:"result"`
}

type sanityMutateRequest struct {
	Mutations []map[string]any `json:"mutations"`
}

type sanityMutateResponse struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

type sanityErrorResponse struct {
	Error struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
}

func NewSanityStore(client *http.Client, config SanityConfig) (*SanityStore, error) {
	if config.ProjectID == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("sanity project id is required")
	}
	if config.Dataset == "" {
		return nil, fmt.Errorf("sanity dataset is required")
	}

	base := config.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.api.sanity.io", config.ProjectID)
	}
	version := config.APIVersion
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}

	return &SanityStore{
		client:  client,
		baseURL: strings.TrimRight(base, "/") + "/" + version,
		dataset: config.Dataset,
		token:   config.Token,
	}, nil
}

func (s *SanityStore) Close() error {
	return nil
}

func (s *SanityStore) GetPost(ctx context.Context, id string) (*Post, error) {
	return getPost(ctx, s, id)
}

func (s *SanityStore) Query(ctx context.Context, f Filter, out any) error {
	if err := f.validate(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/data/query/%s?query=%s", s.baseURL, url.PathEscape(s.dataset), url.QueryEscape(f.GROQ()))

	var resp sanityQueryResponse
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return fmt.Errorf("failed to query %s: %w", f.GROQ(), err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		resp.Result = jsoniter.RawMessage("[]")
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode query result: %w", err)
	}
	return nil
}

func (s *SanityStore) CreateIfNotExists(ctx context.Context, doc Document) error {
	stampType(doc)
	_, err := s.mutate(ctx, map[string]any{"createIfNotExists": doc})
	if err != nil {
		return fmt.Errorf("failed to create document %s: %w", doc.DocumentID(), err)
	}
	return nil
}

func (s *SanityStore) CreateOrReplace(ctx context.Context, doc Document) error {
	stampType(doc)
	_, err := s.mutate(ctx, map[string]any{"createOrReplace": doc})
	if err != nil {
		return fmt.Errorf("failed to replace document %s: %w", doc.DocumentID(), err)
	}
	return nil
}

func (s *SanityStore) Patch(ctx context.Context, id string, set map[string]any) error {
	_, err := s.mutate(ctx, map[string]any{"patch": map[string]any{"id": id, "set": set}})
	if err != nil {
		return fmt.Errorf("failed to patch document %s: %w", id, err)
	}
	return nil
}

func (s *SanityStore) Delete(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, map[string]any{"delete": map[string]any{"id": id}})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (s *SanityStore) DeleteByQuery(ctx context.Context, f Filter) (int, error) {
	if err := f.validate(); err != nil {
		return 0, err
	}

	resp, err := s.mutate(ctx, map[string]any{"delete": map[string]any{"query": f.GROQ()}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", f.GROQ(), err)
	}
	return len(resp.Results), nil
}

func (s *SanityStore) mutate(ctx context.Context, mutation map[string]any) (*sanityMutateResponse, error) {
	body, err := json.Marshal(sanityMutateRequest{Mutations: []map[string]any{mutation}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mutation: %w", err)
	}

	endpoint := fmt.Sprintf("%s/data/mutate/%s?returnIds=true", s.baseURL, url.PathEscape(s.dataset))

	var resp sanityMutateResponse
	if err := s.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *SanityStore) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr sanityErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, apiErr.Error.Description)
		}
		return fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
