package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"grouphelper/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{HTTPClient: srv.Client(), Logger: testLogger()})
}

// chain builds a post wrapped in depth crosspost layers; the root has the title "root".
func chain(depth int) map[string]any {
	post := map[string]any{
		"subreddit": "golang",
		"title":     "root",
		"permalink": "/r/golang/comments/abc/root/",
		"domain":    "i.redd.it",
		"url":       "https://i.redd.it/pic.jpg",
	}
	for i := 0; i < depth; i++ {
		post = map[string]any{
			"title":                 "wrapper",
			"domain":                "self.golang",
			"crosspost_parent_list": []any{post},
		}
	}
	return post
}

func listingBody(post map[string]any) []byte {
	body, _ := json.Marshal([]any{
		map[string]any{
			"kind": "Listing",
			"data": map[string]any{
				"children": []any{map[string]any{"kind": "t3", "data": post}},
			},
		},
		map[string]any{"kind": "Listing", "data": map[string]any{"children": []any{}}},
	})
	return body
}

func TestJSONURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.reddit.com/r/go/comments/abc/title/", "https://www.reddit.com/r/go/comments/abc/title/.json"},
		{"https://www.reddit.com/r/go/comments/abc/title/?utm_source=share&utm_medium=web", "https://www.reddit.com/r/go/comments/abc/title/.json"},
		{"https://www.reddit.com/r/go/comments/abc/title#top", "https://www.reddit.com/r/go/comments/abc/title.json"},
	}
	for _, tt := range tests {
		if got := JSONURL(tt.in); got != tt.want {
			t.Errorf("JSONURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPostURL(t *testing.T) {
	if !IsPostURL("https://www.reddit.com/r/golang/comments/abc/x/") {
		t.Error("subreddit post URL should be accepted")
	}
	for _, u := range []string{"https://old.reddit.com/r/golang", "http://www.reddit.com/r/golang", "https://imgur.com/abc"} {
		if IsPostURL(u) {
			t.Errorf("%q should be rejected", u)
		}
	}
}

func TestFetch_StripsQueryAndSetsUserAgent(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotUA = r.URL.Path, r.URL.RawQuery, r.UserAgent()
		w.Write(listingBody(chain(0)))
	}))
	defer srv.Close()

	post, err := newTestClient(srv).Fetch(context.Background(), srv.URL+"/r/golang/comments/abc/root/?share=1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/r/golang/comments/abc/root/.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "" {
		t.Errorf("query should be stripped, got %q", gotQuery)
	}
	if gotUA != defaultUserAgent {
		t.Errorf("user agent = %q", gotUA)
	}
	if post.Title != "root" || post.Domain != "i.redd.it" {
		t.Errorf("unexpected post: %+v", post)
	}
}

func TestFetch_UnwrapsCrosspostChains(t *testing.T) {
	for depth := 0; depth < DefaultMaxCrosspostDepth; depth++ {
		body := listingBody(chain(depth))
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(body)
		}))

		post, err := newTestClient(srv).Fetch(context.Background(), srv.URL+"/r/x")
		srv.Close()
		if err != nil {
			t.Fatalf("depth %d: unexpected error %v", depth, err)
		}
		if post.Title != "root" {
			t.Fatalf("depth %d: got %q, want root post", depth, post.Title)
		}
		if len(post.CrosspostParentList) != 0 {
			t.Fatalf("depth %d: returned a crosspost wrapper", depth)
		}
	}
}

func TestFetch_RejectsDeepCrosspostChains(t *testing.T) {
	for _, depth := range []int{DefaultMaxCrosspostDepth, DefaultMaxCrosspostDepth + 1, 40} {
		body := listingBody(chain(depth))
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(body)
		}))

		_, err := newTestClient(srv).Fetch(context.Background(), srv.URL+"/r/x")
		srv.Close()
		if !errors.Is(err, domain.ErrUnsupported) {
			t.Errorf("depth %d: expected ErrUnsupported, got %v", depth, err)
		}
	}
}

func TestFetch_UnexpectedShapes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"object instead of list", http.StatusOK, `{"kind":"Listing","data":{"children":[]}}`},
		{"empty list", http.StatusOK, `[]`},
		{"listing without data", http.StatusOK, `[{"kind":"Listing"}]`},
		{"no children", http.StatusOK, `[{"kind":"Listing","data":{"children":[]}}]`},
		{"not json", http.StatusOK, `<html></html>`},
		{"not found status", http.StatusNotFound, `{"message":"Not Found","error":404}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Fetch(context.Background(), srv.URL+"/r/x")
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestFetch_NetworkErrorIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(ClientConfig{Logger: testLogger()}).Fetch(context.Background(), url+"/r/x")
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Error("transport failures should not be reported as ErrNotFound")
	}
}

func TestFetch_NonMediaDomainMakesSingleRequest(t *testing.T) {
	var calls atomic.Int32
	post := chain(0)
	post["domain"] = "youtube.com"
	body := listingBody(post)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write(body)
	}))
	defer srv.Close()

	p, err := newTestClient(srv).Fetch(context.Background(), srv.URL+"/r/x")
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := Classify(p); ok {
		t.Error("youtube.com should not be classified as media")
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one request, got %d", calls.Load())
	}
}

func TestCaption(t *testing.T) {
	p := &Post{Subreddit: "aww", Title: "A cat", Permalink: "/r/aww/comments/1/a_cat/"}
	want := "r/aww - A cat\n\nreddit.com/r/aww/comments/1/a_cat/"
	if got := p.Caption(); got != want {
		t.Errorf("Caption() = %q, want %q", got, want)
	}
	if !strings.Contains(p.Caption(), "\n\n") {
		t.Error("caption should separate title and link with a blank line")
	}
}
