package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
)

func newTestClient(httpClient *http.Client) *Client {
	return New(Config{
		HTTPClient: httpClient,
		UserAgent:  "cp-tracker-test/1.0",
		Logger:     logging.NewNop(),
	})
}

func TestClient_GetJSON_DecodesBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "cp-tracker-test/1.0" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"handle":"tourist","rating":3821}`))
	}))
	defer server.Close()

	client := newTestClient(server.Client())

	var out struct {
		Handle string `json:"handle"`
		Rating int    `json:"rating"`
	}
	if err := client.GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Handle != "tourist" || out.Rating != 3821 {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestClient_PostJSON_SendsJSONBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(server.Client())

	var out struct {
		OK bool `json:"ok"`
	}
	err := client.PostJSON(context.Background(), server.URL, map[string]string{"query": "{}"}, &out)
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if !out.OK {
		t.Fatalf("expected ok=true, got %+v", out)
	}
}

func TestClient_StatusClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		check  func(error) bool
		label  string
	}{
		{name: "not found", status: http.StatusNotFound, check: stats.IsNotFound, label: "not-found"},
		{name: "rate limited", status: http.StatusTooManyRequests, check: stats.IsTransient, label: "transient"},
		{name: "server error", status: http.StatusBadGateway, check: stats.IsTransient, label: "transient"},
		{name: "forbidden", status: http.StatusForbidden, check: stats.IsExtraction, label: "extraction"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := newTestClient(server.Client())
			_, err := client.GetDocument(context.Background(), server.URL)
			if err == nil {
				t.Fatalf("expected error for status %d", tc.status)
			}
			if !tc.check(err) {
				t.Fatalf("expected %s classification for status %d, got %v", tc.label, tc.status, err)
			}
		})
	}
}

func TestClient_MalformedJSONIsExtractionFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	client := newTestClient(server.Client())

	var out map[string]any
	err := client.GetJSON(context.Background(), server.URL, &out)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !stats.IsExtraction(err) {
		t.Fatalf("expected extraction classification, got %v", err)
	}
}
