package reddit

import (
	"strings"

	"grouphelper/internal/domain"
)

// Provider is the host that serves a post's media.
type Provider int

const (
	ProviderNone Provider = iota
	ProviderReddit
	ProviderImgur
)

func (p Provider) String() string {
	switch p {
	case ProviderReddit:
		return "reddit"
	case ProviderImgur:
		return "imgur"
	default:
		return "none"
	}
}

var providerByDomain = map[string]Provider{
	"i.redd.it":   ProviderReddit,
	"v.redd.it":   ProviderReddit,
	"i.imgur.com": ProviderImgur,
	"imgur.com":   ProviderImgur,
}

// Classify reports whether the post links to media on a recognized host.
func Classify(p *Post) (bool, Provider) {
	if p == nil || p.Domain == "" {
		return false, ProviderNone
	}
	provider, ok := providerByDomain[p.Domain]
	return ok, provider
}

// ResolveMedia determines the media type of a Reddit-hosted post.
// GIF links are videos that never need remuxing since they carry no audio stream.
func ResolveMedia(p *Post) domain.Classification {
	if !p.IsVideo && !strings.HasSuffix(p.URL, ".gif") {
		return domain.Classification{Kind: domain.MediaRedditImage, SourceURL: p.URL}
	}

	c := domain.Classification{Kind: domain.MediaRedditVideo, SourceURL: p.URL}
	if v := p.redditVideo(); p.IsVideo && v != nil && v.FallbackURL != "" {
		c.Video = &domain.VideoStreams{
			FallbackURL: v.FallbackURL,
			Width:       v.Width,
			Height:      v.Height,
			Duration:    v.Duration,
			Thumbnail:   p.Thumbnail,
		}
	}
	return c
}
