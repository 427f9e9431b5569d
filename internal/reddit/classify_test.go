package reddit

import (
	"testing"

	"grouphelper/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		domain   string
		hasMedia bool
		provider Provider
	}{
		{"i.redd.it", true, ProviderReddit},
		{"v.redd.it", true, ProviderReddit},
		{"i.imgur.com", true, ProviderImgur},
		{"imgur.com", true, ProviderImgur},
		{"", false, ProviderNone},
		{"self.golang", false, ProviderNone},
		{"youtube.com", false, ProviderNone},
		{"m.imgur.com", false, ProviderNone},
		{"preview.redd.it", false, ProviderNone},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			ok, p := Classify(&Post{Domain: tt.domain})
			if ok != tt.hasMedia || p != tt.provider {
				t.Errorf("Classify(%q) = (%v, %v), want (%v, %v)", tt.domain, ok, p, tt.hasMedia, tt.provider)
			}
		})
	}
}

func TestClassify_NilPost(t *testing.T) {
	if ok, _ := Classify(nil); ok {
		t.Error("nil post has no media")
	}
}

func TestResolveMedia_Image(t *testing.T) {
	c := ResolveMedia(&Post{Domain: "i.redd.it", URL: "https://i.redd.it/pic.jpg"})
	if c.Kind != domain.MediaRedditImage {
		t.Fatalf("kind = %v, want reddit_image", c.Kind)
	}
	if c.SourceURL != "https://i.redd.it/pic.jpg" {
		t.Errorf("source = %q", c.SourceURL)
	}
	if c.RequiresRemux() {
		t.Error("images never require remux")
	}
}

func TestResolveMedia_GIFIsVideoWithoutRemux(t *testing.T) {
	c := ResolveMedia(&Post{Domain: "i.redd.it", URL: "https://i.redd.it/anim.gif"})
	if c.Kind != domain.MediaRedditVideo {
		t.Fatalf("kind = %v, want reddit_video", c.Kind)
	}
	if c.RequiresRemux() {
		t.Error("gif links must not require remux")
	}
}

func TestResolveMedia_DASHVideoRequiresRemux(t *testing.T) {
	p := &Post{
		Domain:    "v.redd.it",
		URL:       "https://v.redd.it/abc",
		IsVideo:   true,
		Thumbnail: "https://b.thumbs.redditmedia.com/t.jpg",
		Media: &Media{RedditVideo: &RedditVideo{
			FallbackURL: "https://v.redd.it/abc/DASH_480.mp4",
			Width:       640,
			Height:      480,
			Duration:    12,
		}},
	}
	c := ResolveMedia(p)
	if c.Kind != domain.MediaRedditVideo || !c.RequiresRemux() {
		t.Fatalf("expected remuxable reddit_video, got %+v", c)
	}
	if c.Video.Width != 640 || c.Video.Height != 480 || c.Video.Duration != 12 {
		t.Errorf("dimensions not carried: %+v", c.Video)
	}
	if c.Video.Thumbnail != p.Thumbnail {
		t.Errorf("thumbnail = %q", c.Video.Thumbnail)
	}
}

func TestResolveMedia_VideoWithoutFallbackSkipsRemux(t *testing.T) {
	c := ResolveMedia(&Post{Domain: "v.redd.it", URL: "https://v.redd.it/abc", IsVideo: true})
	if c.Kind != domain.MediaRedditVideo {
		t.Fatalf("kind = %v", c.Kind)
	}
	if c.RequiresRemux() {
		t.Error("no fallback_url means nothing to remux")
	}
}
