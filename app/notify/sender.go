package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string // defaults to https://api.twilio.com
}

// TwilioSender delivers messages through the Twilio Messages API.
type TwilioSender struct {
	client   *http.Client
	endpoint string
	sid      string
	token    string
	from     string
}

type twilioResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewTwilioSender(client *http.Client, config TwilioConfig) *TwilioSender {
	base := config.BaseURL
	if base == "" {
		base = "https://api.twilio.com"
	}

	return &TwilioSender{
		client:   client,
		endpoint: fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(base, "/"), url.PathEscape(config.AccountSID)),
		sid:      config.AccountSID,
		token:    config.AuthToken,
		from:     config.From,
	}
}

func (s *TwilioSender) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", s.from)
	form.Set("Body", msg.Body)
	for _, media := range msg.MediaURLs {
		form.Add("MediaUrl", media)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(s.sid, s.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

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
		var apiErr twilioError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("failed to send message to %s: status %d: %s (code %d)", msg.To, resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("failed to send message to %s: status %d", msg.To, resp.StatusCode)
	}

	var parsed twilioResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	slog.Debug("Message queued", "to", msg.To, "sid", parsed.SID, "status", parsed.Status)
	return nil
}
