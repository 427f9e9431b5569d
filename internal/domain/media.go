package domain

// MediaKind classifies the displayable media behind a shared post.
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaRedditImage
	MediaRedditVideo
	MediaImgurImage
	MediaImgurVideo
	MediaImgurGallery
)

func (k MediaKind) String() string {
	switch k {
	case MediaNone:
		return "none"
	case MediaRedditImage:
		return "reddit_image"
	case MediaRedditVideo:
		return "reddit_video"
	case MediaImgurImage:
		return "imgur_image"
	case MediaImgurVideo:
		return "imgur_video"
	case MediaImgurGallery:
		return "imgur_gallery"
	default:
		return "unknown"
	}
}

// Classification is the resolved media of a post plus what is needed to act on it.
type Classification struct {
	Kind      MediaKind
	SourceURL string
	// Video is set only for Reddit-hosted videos whose audio lives in a separate stream.
	Video *VideoStreams
}

// RequiresRemux reports whether audio and video must be combined before delivery.
func (c Classification) RequiresRemux() bool {
	return c.Kind == MediaRedditVideo && c.Video != nil && c.Video.FallbackURL != ""
}

// VideoStreams describes a Reddit DASH video as reported by the post metadata.
type VideoStreams struct {
	FallbackURL string
	Width       int
	Height      int
	Duration    int
	Thumbnail   string
}

// RemuxedVideo is a combined audio+video container held in memory.
type RemuxedVideo struct {
	Data      []byte
	Width     int
	Height    int
	Duration  int
	Thumbnail string
}

// DeliveryAction is the send operation chosen for a post.
type DeliveryAction int

const (
	ActionSendPhoto DeliveryAction = iota + 1
	ActionSendVideo
	ActionSendVideoFile
)

func (a DeliveryAction) String() string {
	switch a {
	case ActionSendPhoto:
		return "send_photo"
	case ActionSendVideo:
		return "send_video"
	case ActionSendVideoFile:
		return "send_video_file"
	default:
		return "unknown"
	}
}

// DeliveryIntent is the single send decision produced for a classified post.
type DeliveryIntent struct {
	Action  DeliveryAction
	URL     string        // photo or video link for URL based actions
	Video   *RemuxedVideo // payload for ActionSendVideoFile
	Caption string
}
