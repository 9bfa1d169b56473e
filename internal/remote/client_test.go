package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestParse(t *testing.T) {
	var got struct {
		Script string `json:"script"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"errors":[{"line":2,"message":"bad"}],"warnings":[]}`))
	}))
	defer srv.Close()

	c := NewClient(WithLogger(zaptest.NewLogger(t)))
	res, err := c.Parse(context.Background(), srv.URL, "on load:\n\tfoo")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Script != "on load:\n\tfoo" {
		t.Fatalf("script sent = %q", got.Script)
	}
	if len(res.Errors) != 1 || res.Errors[0].Line != 2 || res.Errors[0].Message != "bad" {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if res.Warnings == nil || len(res.Warnings) != 0 {
		t.Fatalf("warnings = %+v", res.Warnings)
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"server error", http.StatusInternalServerError, "boom", func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode == 500 && se.Body == "boom"
		}},
		{"not json", http.StatusOK, "<html>", func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
		{"missing warnings", http.StatusOK, `{"errors":[]}`, func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
		{"missing errors", http.StatusOK, `{"warnings":[]}`, func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
		{"null arrays", http.StatusOK, `{"errors":null,"warnings":null}`, func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			_, err := NewClient().Parse(context.Background(), srv.URL, "x")
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestParseUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	if _, err := NewClient().Parse(context.Background(), url, "x"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestCatalogURL(t *testing.T) {
	if got := NewClient().CatalogURL(); got != DefaultCatalogURL {
		t.Fatalf("default catalog url = %q", got)
	}
	if got := NewClient(WithCatalogURL("http://mirror.test/syntax")).CatalogURL(); got != "http://mirror.test/syntax" {
		t.Fatalf("catalog url = %q", got)
	}
}

func TestParseTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(WithTimeout(50 * time.Millisecond))
	start := time.Now()
	if _, err := c.Parse(context.Background(), srv.URL, "x"); err == nil {
		t.Fatal("expected timeout")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not applied")
	}
}

func TestParseCallerDeadlineMessage(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient().Parse(ctx, srv.URL, "x")
	if err == nil {
		t.Fatal("expected timeout")
	}
	if msg := err.Error(); !strings.Contains(msg, "timed out after") || strings.Contains(msg, "after 0s") {
		t.Fatalf("error = %q, want the elapsed time", msg)
	}
}

func TestFetchCatalogSurvivesCanceledCaller(t *testing.T) {
	var hits atomic.Int32
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-gate
		_, _ = w.Write([]byte(`[{"title":"Join","syntax_type":"event","syntax_pattern":"on join","description":"d","addon":{"name":"Skript"}}]`))
	}))
	defer srv.Close()

	c := NewClient(WithCatalogURL(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.FetchCatalog(ctx)
		first <- err
	}()
	deadline := time.Now().Add(3 * time.Second)
	for hits.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("catalog request never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	second := make(chan int, 1)
	go func() {
		entries, err := c.FetchCatalog(context.Background())
		if err != nil {
			t.Errorf("FetchCatalog: %v", err)
		}
		second <- len(entries)
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled caller error = %v", err)
	}
	close(gate)
	if n := <-second; n != 1 {
		t.Fatalf("remaining caller got %d entries", n)
	}
	if h := hits.Load(); h != 1 {
		t.Fatalf("hits = %d, want one shared request", h)
	}
}

func TestFetchCatalogSharesRequests(t *testing.T) {
	var hits atomic.Int32
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-gate
		_, _ = w.Write([]byte(`[{"title":"Join","syntax_type":"event","syntax_pattern":"on join","description":"d","addon":{"name":"Skript"}}]`))
	}))
	defer srv.Close()

	c := NewClient(WithCatalogURL(srv.URL))
	var wg sync.WaitGroup
	results := make([]int, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries, err := c.FetchCatalog(context.Background())
			if err != nil {
				t.Errorf("FetchCatalog: %v", err)
				return
			}
			results[i] = len(entries)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i, n := range results {
		if n != 1 {
			t.Fatalf("caller %d got %d entries", i, n)
		}
	}
	if h := hits.Load(); h < 1 || h > 4 {
		t.Fatalf("unexpected hit count %d", h)
	}
}

func TestFetchCatalogMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":"not a list"}`))
	}))
	defer srv.Close()
	if _, err := NewClient(WithCatalogURL(srv.URL)).FetchCatalog(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
