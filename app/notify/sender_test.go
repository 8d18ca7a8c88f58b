package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestTwilioSenderSend(t *testing.T) {
	var (
		gotPath string
		gotForm url.Values
		gotUser string
		gotPass string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		r.ParseForm()
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer server.Close()

	sender := NewTwilioSender(server.Client(), TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+15550009999",
		BaseURL:    server.URL,
	})

	err := sender.Send(context.Background(), Message{
		To:        "+15550001111",
		Body:      "9/10/21, 5:00 AM PST: Day 3\n\nAll well",
		MediaURLs: []string{"http://x.test/img/abc.jpg", "http://x.test/img/def.jpg"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Errorf("Unexpected path: %s", gotPath)
	}
	if gotUser != "AC123" || gotPass != "secret" {
		t.Errorf("Unexpected basic auth %s:%s", gotUser, gotPass)
	}
	if gotForm.Get("To") != "+15550001111" || gotForm.Get("From") != "+15550009999" {
		t.Errorf("Unexpected recipients: %v", gotForm)
	}
	if gotForm.Get("Body") != "9/10/21, 5:00 AM PST: Day 3\n\nAll well" {
		t.Errorf("Unexpected body: %q", gotForm.Get("Body"))
	}
	if media := gotForm["MediaUrl"]; len(media) != 2 || media[1] != "http://x.test/img/def.jpg" {
		t.Errorf("Unexpected media: %v", media)
	}
}

func TestTwilioSenderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))
	}))
	defer server.Close()

	sender := NewTwilioSender(server.Client(), TwilioConfig{AccountSID: "AC123", AuthToken: "secret", BaseURL: server.URL})

	err := sender.Send(context.Background(), Message{To: "+1", Body: "hi"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "21211") {
		t.Errorf("Expected error code in message, got: %v", err)
	}
}
