// Package imgur resolves Imgur assets through the image and gallery endpoints
// of the Imgur v3 API.
package imgur

import (
	"context"
	"encoding/json"
	"errors"
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
	defaultAPIBase = "https://api.imgur.com/3"
	defaultTimeout = 15 * time.Second
)

// Asset is the subset of an Imgur image or gallery object used for delivery.
type Asset struct {
	ID        string `json:"id"`
	InGallery bool   `json:"in_gallery"`
	Type      string `json:"type"`
	Link      string `json:"link"`
	MP4       string `json:"mp4"`
}

type apiResponse struct {
	Data    *Asset `json:"data"`
	Success bool   `json:"success"`
	Status  int    `json:"status"`
}

// ClientConfig configures the Imgur client.
type ClientConfig struct {
	ClientID   string
	APIBase    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client looks up assets against the Imgur API.
type Client struct {
	clientID string
	apiBase  string
	client   *http.Client
	logger   *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = provider.SharedHTTPClient(cfg.Timeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		clientID: cfg.ClientID,
		apiBase:  strings.TrimRight(cfg.APIBase, "/"),
		client:   cfg.HTTPClient,
		logger:   cfg.Logger,
	}
}

// AssetID extracts the asset id from an Imgur link: the last path segment
// without its file extension.
func AssetID(link string) string {
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	segment := link[strings.LastIndex(link, "/")+1:]
	id, _, _ := strings.Cut(segment, ".")
	return id
}

// Resolve looks the asset up on the image endpoint first and the gallery
// endpoint second. Imgur serves single images and gallery posts under the same
// id space, so a miss on the first endpoint is expected, not exceptional.
func (c *Client) Resolve(ctx context.Context, link string) (*Asset, error) {
	id := AssetID(link)
	if id == "" {
		return nil, fmt.Errorf("%w: no asset id in %q", domain.ErrUnresolved, link)
	}

	asset, imageErr := c.lookup(ctx, "image", id)
	if imageErr == nil {
		return asset, nil
	}
	c.logger.Debug("imgur image lookup failed, trying gallery", "id", id, "error", imageErr)

	asset, galleryErr := c.lookup(ctx, "gallery", id)
	if galleryErr == nil {
		return asset, nil
	}
	return nil, fmt.Errorf("%w: %s: %w", domain.ErrUnresolved, id, errors.Join(imageErr, galleryErr))
}

func (c *Client) lookup(ctx context.Context, endpoint, id string) (*Asset, error) {
	url := fmt.Sprintf("%s/%s/%s", c.apiBase, endpoint, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.clientID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s lookup: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s lookup: status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s lookup: decode: %w", endpoint, err)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("%s lookup: empty data", endpoint)
	}
	return out.Data, nil
}

// Classify maps a resolved asset to a media classification. Gallery
// membership wins over the asset's own type.
func Classify(a *Asset) (domain.Classification, error) {
	switch {
	case a.InGallery:
		return domain.Classification{Kind: domain.MediaImgurGallery, SourceURL: a.Link}, nil
	case strings.HasPrefix(a.Type, "image"):
		return domain.Classification{Kind: domain.MediaImgurImage, SourceURL: a.Link}, nil
	case strings.HasPrefix(a.Type, "video"):
		link := a.MP4
		if link == "" {
			link = a.Link
		}
		return domain.Classification{Kind: domain.MediaImgurVideo, SourceURL: link}, nil
	default:
		return domain.Classification{}, fmt.Errorf("%w: imgur type %q", domain.ErrUnsupported, a.Type)
	}
}
