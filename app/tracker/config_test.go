package tracker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTrackerFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write tracker file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTrackerFile(t, "kalea.yml", `
route_url: "https://forecast.test/api/route?id=kalea"
blog_url: "https://forecast.test/api/blog?id=kalea"
post_link: "https://forecast.test/t/%s"
timeout: 10
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Name != "kalea" {
		t.Errorf("Expected name 'kalea', got '%s'", config.Name)
	}
	if config.GetTimeout() != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", config.GetTimeout())
	}
	if config.Display.Timezone != "America/Los_Angeles" {
		t.Errorf("Expected default timezone 'America/Los_Angeles', got '%s'", config.Display.Timezone)
	}
	if config.Display.ZoneLabel != "PST" {
		t.Errorf("Expected default zone label 'PST', got '%s'", config.Display.ZoneLabel)
	}
	if config.DisplayLocation().String() != "America/Los_Angeles" {
		t.Errorf("Expected display location 'America/Los_Angeles', got '%s'", config.DisplayLocation())
	}
	if got := config.PostURL("42"); got != "https://forecast.test/t/42" {
		t.Errorf("Expected post URL 'https://forecast.test/t/42', got '%s'", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTrackerFile(t, "boat.yaml", `
name: "Wandering Star"
route_url: "https://forecast.test/route"
blog_url: "https://forecast.test/blog"
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Name != "Wandering Star" {
		t.Errorf("Expected name 'Wandering Star', got '%s'", config.Name)
	}
	if config.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", config.Timeout)
	}
	if config.PostURL("42") != "" {
		t.Errorf("Expected empty post URL without template, got '%s'", config.PostURL("42"))
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		errorMsg string
	}{
		{
			name:     "missing route URL",
			content:  `blog_url: "https://forecast.test/blog"`,
			errorMsg: "route URL is required",
		},
		{
			name:     "missing blog URL",
			content:  `route_url: "https://forecast.test/route"`,
			errorMsg: "blog URL is required",
		},
		{
			name: "bad post link",
			content: `route_url: "https://forecast.test/route"
blog_url: "https://forecast.test/blog"
post_link: "https://forecast.test/t/"`,
			errorMsg: "placeholder",
		},
		{
			name: "bad timezone",
			content: `route_url: "https://forecast.test/route"
blog_url: "https://forecast.test/blog"
display:
  timezone: "Mars/Olympus"`,
			errorMsg: "invalid display timezone",
		},
		{
			name: "negative timeout",
			content: `route_url: "https://forecast.test/route"
blog_url: "https://forecast.test/blog"
timeout: -1`,
			errorMsg: "timeout must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTrackerFile(t, "invalid.yml", tt.content)

			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing '%s', got: %v", tt.errorMsg, err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
