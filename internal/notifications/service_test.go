package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"socket/internal/config"
	"socket/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBuildCompleted(context.Background(), "demo", "linux"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "build completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyBuildCompleted(context.Background(), "demo", "macos")
			},
			expectTitle:   "Socket - Build Complete",
			expectMessage: "Build complete: demo (macos)",
			expectTags:    "socket,build,completed",
		},
		{
			name: "package completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyPackageCompleted(context.Background(), "demo", "dist/demo_1.0-1_amd64.deb")
			},
			expectTitle:   "Socket - Packaged",
			expectMessage: "Packaged: demo\nArtifact: dist/demo_1.0-1_amd64.deb",
			expectTags:    "socket,package,completed",
		},
		{
			name: "notarization succeeded",
			notify: func(svc notifications.Service) error {
				return svc.NotifyNotarizationResult(context.Background(), "demo", "success")
			},
			expectTitle:   "Socket - Notarized",
			expectMessage: "Notarization success: demo",
			expectTags:    "socket,notary,completed",
		},
		{
			name: "notarization rejected",
			notify: func(svc notifications.Service) error {
				return svc.NotifyNotarizationResult(context.Background(), "demo", "rejected")
			},
			expectTitle:    "Socket - Notarization Failed",
			expectMessage:  "Notarization rejected: demo",
			expectTags:     "socket,notary,alert",
			expectPriority: "high",
		},
		{
			name: "failure",
			notify: func(svc notifications.Service) error {
				return svc.NotifyFailure(context.Background(), errors.New("compiler exited with status 1"), "compile")
			},
			expectTitle:    "Socket - Error",
			expectMessage:  "Error during compile: compiler exited with status 1",
			expectTags:     "socket,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic refused", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
