package domain

import "errors"

// Media pipeline errors.
var (
	// ErrNotFound is returned when post metadata has an unexpected shape.
	ErrNotFound = errors.New("post metadata not found")

	// ErrNoMedia is returned when the post is not hosted on a recognized media domain.
	ErrNoMedia = errors.New("post has no recognized media")

	// ErrUnsupported is returned for recognized domains with unclassifiable media.
	ErrUnsupported = errors.New("unsupported media")

	// ErrUnresolved is returned when neither Imgur endpoint knows the asset.
	ErrUnresolved = errors.New("imgur asset unresolved")

	// ErrGalleryUnsupported is returned for Imgur galleries, which have no delivery action.
	ErrGalleryUnsupported = errors.New("imgur galleries are not delivered")

	// ErrRemuxFailed is returned when ffmpeg produced no usable output.
	ErrRemuxFailed = errors.New("video remux failed")

	// ErrDeliveryFailed is returned when the transport rejected a send.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// Outcome maps a pipeline error to a short label used in logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "delivered"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoMedia):
		return "no_media"
	case errors.Is(err, ErrGalleryUnsupported):
		return "gallery"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrUnresolved):
		return "unresolved"
	case errors.Is(err, ErrRemuxFailed):
		return "remux_failed"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	default:
		return "error"
	}
}
