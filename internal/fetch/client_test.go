package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientFetch(t *testing.T) {
	t.Parallel()

	t.Run("successful fetch returns page", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>hello</body></html>"))
		}))
		defer srv.Close()

		c := NewClient(5 * time.Second)
		page, err := c.Fetch(context.Background(), srv.URL+"/page", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if page.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", page.StatusCode)
		}
		if !page.IsHTML() {
			t.Errorf("expected HTML content type, got %q", page.ContentType)
		}
		if !strings.Contains(string(page.Body), "hello") {
			t.Errorf("expected body to contain 'hello', got %q", page.Body)
		}
		if page.FetchedAt.IsZero() {
			t.Error("expected FetchedAt to be set")
		}
	})

	t.Run("redirect records final URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("moved"))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c := NewClient(5 * time.Second)
		page, err := c.Fetch(context.Background(), srv.URL+"/old", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(page.URL, "/new") {
			t.Errorf("expected final URL to end in /new, got %q", page.URL)
		}
	})

	t.Run("404 is a status failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		c := NewClient(5 * time.Second)
		_, err := c.Fetch(context.Background(), srv.URL+"/missing", "")

		var fetchErr *Error
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *Error, got %T: %v", err, err)
		}
		if fetchErr.Kind != KindHTTPStatus {
			t.Errorf("expected KindHTTPStatus, got %v", fetchErr.Kind)
		}
		if fetchErr.Status != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", fetchErr.Status)
		}
	})

	t.Run("slow server is a timeout failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		c := NewClient(50 * time.Millisecond)
		_, err := c.Fetch(context.Background(), srv.URL, "")

		var fetchErr *Error
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *Error, got %T: %v", err, err)
		}
		if fetchErr.Kind != KindTimeout {
			t.Errorf("expected KindTimeout, got %v", fetchErr.Kind)
		}
	})

	t.Run("unreachable host is a transport failure", func(t *testing.T) {
		t.Parallel()

		c := NewClient(2 * time.Second)
		_, err := c.Fetch(context.Background(), "http://127.0.0.1:1/none", "")

		var fetchErr *Error
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *Error, got %T: %v", err, err)
		}
		if fetchErr.Kind != KindTransport && fetchErr.Kind != KindConnReset {
			t.Errorf("expected transport-level kind, got %v", fetchErr.Kind)
		}
	})

	t.Run("rotation and extra headers are applied", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotReferer, gotCookie string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotReferer = r.Header.Get("Referer")
			gotCookie = r.Header.Get("Cookie")
		}))
		defer srv.Close()

		c := NewClient(5*time.Second,
			WithUserAgents(NewUserAgentPool("test-agent/1.0")),
			WithHeaders(map[string]string{"Cookie": "session=abc"}),
		)
		if _, err := c.Fetch(context.Background(), srv.URL, srv.URL+"/search"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotUA != "test-agent/1.0" {
			t.Errorf("expected rotated user agent, got %q", gotUA)
		}
		if !strings.HasSuffix(gotReferer, "/search") {
			t.Errorf("expected referer to be set, got %q", gotReferer)
		}
		if gotCookie != "session=abc" {
			t.Errorf("expected cookie header, got %q", gotCookie)
		}
	})
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	e := &Error{Kind: KindHTTPStatus, URL: "http://example.com", Status: 503}
	if !strings.Contains(e.Error(), "503") {
		t.Errorf("expected status in message, got %q", e.Error())
	}

	e = &Error{Kind: KindTimeout, URL: "http://example.com"}
	if !strings.Contains(e.Error(), "timeout") {
		t.Errorf("expected kind in message, got %q", e.Error())
	}
}
