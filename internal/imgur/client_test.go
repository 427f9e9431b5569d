package imgur

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"grouphelper/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fakeAPI struct {
	mu      sync.Mutex
	paths   []string
	auth    []string
	image   func(w http.ResponseWriter)
	gallery func(w http.ResponseWriter)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/3/image/xyz123" && f.image != nil:
		f.image(w)
	case r.URL.Path == "/3/gallery/xyz123" && f.gallery != nil:
		f.gallery(w)
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"data":{"error":"Unable to find an image with the id"},"success":false,"status":404}`))
	}
}

func respond(body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		ClientID:   "cid",
		APIBase:    srv.URL + "/3",
		HTTPClient: srv.Client(),
		Logger:     testLogger(),
	})
}

func TestAssetID(t *testing.T) {
	tests := map[string]string{
		"https://i.imgur.com/xyz123.jpg":      "xyz123",
		"https://i.imgur.com/xyz123.gifv":     "xyz123",
		"https://imgur.com/xyz123":            "xyz123",
		"https://imgur.com/gallery/xyz123":    "xyz123",
		"https://i.imgur.com/xyz123.mp4?q=1":  "xyz123",
		"https://imgur.com/":                  "",
	}
	for in, want := range tests {
		if got := AssetID(in); got != want {
			t.Errorf("AssetID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve_ImageEndpoint(t *testing.T) {
	api := &fakeAPI{image: respond(`{"data":{"id":"xyz123","in_gallery":false,"type":"image/jpeg","link":"https://i.imgur.com/xyz123.jpg"},"success":true,"status":200}`)}
	srv := httptest.NewServer(api)
	defer srv.Close()

	asset, err := newTestClient(srv).Resolve(context.Background(), "https://i.imgur.com/xyz123.jpg")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Link != "https://i.imgur.com/xyz123.jpg" {
		t.Errorf("link = %q", asset.Link)
	}
	if len(api.paths) != 1 {
		t.Errorf("gallery endpoint should not be queried, calls: %v", api.paths)
	}
	if api.auth[0] != "Client-ID cid" {
		t.Errorf("authorization header = %q", api.auth[0])
	}
}

func TestResolve_FallsBackToGallery(t *testing.T) {
	api := &fakeAPI{gallery: respond(`{"data":{"id":"xyz123","in_gallery":false,"type":"video/mp4","link":"https://i.imgur.com/xyz123.gifv","mp4":"https://i.imgur.com/xyz123.mp4"},"success":true,"status":200}`)}
	srv := httptest.NewServer(api)
	defer srv.Close()

	asset, err := newTestClient(srv).Resolve(context.Background(), "https://imgur.com/xyz123")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(api.paths) != 2 || api.paths[0] != "/3/image/xyz123" || api.paths[1] != "/3/gallery/xyz123" {
		t.Fatalf("unexpected lookup order: %v", api.paths)
	}
	c, err := Classify(asset)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c.Kind != domain.MediaImgurVideo || c.SourceURL != "https://i.imgur.com/xyz123.mp4" {
		t.Errorf("classification must come from the gallery response, got %+v", c)
	}
}

func TestResolve_BothEndpointsFail(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := newTestClient(srv).Resolve(context.Background(), "https://i.imgur.com/xyz123.png")
	if !errors.Is(err, domain.ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if len(api.paths) != 2 {
		t.Errorf("expected both endpoints to be tried, got %v", api.paths)
	}
}

func TestResolve_SuccessWithoutDataFallsThrough(t *testing.T) {
	api := &fakeAPI{
		image:   respond(`{"success":true,"status":200}`),
		gallery: respond(`{"data":{"id":"xyz123","in_gallery":true,"type":"image/png","link":"https://imgur.com/gallery/xyz123"},"success":true,"status":200}`),
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	asset, err := newTestClient(srv).Resolve(context.Background(), "https://imgur.com/xyz123")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !asset.InGallery {
		t.Error("expected gallery asset")
	}
}

func TestResolve_EmptyIDMakesNoRequest(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := newTestClient(srv).Resolve(context.Background(), "https://imgur.com/")
	if !errors.Is(err, domain.ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if len(api.paths) != 0 {
		t.Errorf("no request expected, got %v", api.paths)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		asset   Asset
		kind    domain.MediaKind
		source  string
		wantErr error
	}{
		{"gallery wins over image type", Asset{InGallery: true, Type: "image/jpeg", Link: "L"}, domain.MediaImgurGallery, "L", nil},
		{"gallery wins over video type", Asset{InGallery: true, Type: "video/mp4", Link: "L", MP4: "M"}, domain.MediaImgurGallery, "L", nil},
		{"image", Asset{Type: "image/png", Link: "L"}, domain.MediaImgurImage, "L", nil},
		{"video uses mp4", Asset{Type: "video/mp4", Link: "L", MP4: "M"}, domain.MediaImgurVideo, "M", nil},
		{"video without mp4", Asset{Type: "video/webm", Link: "L"}, domain.MediaImgurVideo, "L", nil},
		{"unknown family", Asset{Type: "application/octet-stream", Link: "L"}, domain.MediaNone, "", domain.ErrUnsupported},
		{"missing type", Asset{Link: "L"}, domain.MediaNone, "", domain.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Classify(&tt.asset)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if c.Kind != tt.kind || c.SourceURL != tt.source {
				t.Errorf("got (%v, %q), want (%v, %q)", c.Kind, c.SourceURL, tt.kind, tt.source)
			}
		})
	}
}
