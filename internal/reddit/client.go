package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"grouphelper/internal/domain"
	"grouphelper/internal/provider"
)

const (
	// DefaultMaxCrosspostDepth bounds crosspost unwrapping; chains this deep are rejected.
	DefaultMaxCrosspostDepth = 16
	defaultUserAgent         = "grouphelper/1.0 (telegram group helper bot)"
	defaultTimeout           = 15 * time.Second
	postURLPrefix            = "https://www.reddit.com/r"
)

// ClientConfig configures the post metadata client.
type ClientConfig struct {
	UserAgent         string
	Timeout           time.Duration
	MaxCrosspostDepth int
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client fetches post metadata from Reddit's public JSON views.
type Client struct {
	userAgent string
	maxDepth  int
	client    *http.Client
	logger    *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxCrosspostDepth <= 0 {
		cfg.MaxCrosspostDepth = DefaultMaxCrosspostDepth
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = provider.SharedHTTPClient(cfg.Timeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		userAgent: cfg.UserAgent,
		maxDepth:  cfg.MaxCrosspostDepth,
		client:    cfg.HTTPClient,
		logger:    cfg.Logger,
	}
}

// IsPostURL reports whether a shared link points at a subreddit page.
func IsPostURL(u string) bool {
	return strings.HasPrefix(u, postURLPrefix)
}

// JSONURL returns the JSON view of a post page, dropping query and fragment.
func JSONURL(postURL string) string {
	if i := strings.IndexAny(postURL, "?#"); i >= 0 {
		postURL = postURL[:i]
	}
	return postURL + ".json"
}

// Fetch retrieves the root metadata of the post behind postURL.
// Crossposts are unwrapped until the original post is reached.
func (c *Client) Fetch(ctx context.Context, postURL string) (*Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, JSONURL(postURL), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrNotFound, resp.StatusCode, string(body))
	}

	var listings []listing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return nil, fmt.Errorf("%w: decode listing: %v", domain.ErrNotFound, err)
	}

	post := firstPost(listings)
	if post == nil {
		return nil, domain.ErrNotFound
	}

	root, err := UnwrapCrossposts(post, c.maxDepth)
	if err != nil {
		return nil, err
	}
	if root != post {
		c.logger.Debug("unwrapped crosspost", "url", postURL, "root_permalink", root.Permalink)
	}
	return root, nil
}

func firstPost(listings []listing) *Post {
	if len(listings) == 0 || listings[0].Data == nil {
		return nil
	}
	children := listings[0].Data.Children
	if len(children) == 0 {
		return nil
	}
	return children[0].Data
}

// UnwrapCrossposts follows crosspost_parent_list to the original post.
// A chain of maxDepth or more hops is treated as unsupported.
func UnwrapCrossposts(p *Post, maxDepth int) (*Post, error) {
	depth := 0
	for len(p.CrosspostParentList) > 0 {
		depth++
		if depth >= maxDepth {
			return nil, fmt.Errorf("%w: crosspost chain reaches depth %d", domain.ErrUnsupported, maxDepth)
		}
		p = &p.CrosspostParentList[0]
	}
	return p, nil
}
