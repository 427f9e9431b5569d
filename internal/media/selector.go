package media

import (
	"fmt"

	"grouphelper/internal/domain"
	"grouphelper/internal/reddit"
)

// SelectDelivery picks the one send action for a classified post. remuxed must
// be set exactly when the classification requires a remux.
func SelectDelivery(c domain.Classification, post *reddit.Post, remuxed *domain.RemuxedVideo) (*domain.DeliveryIntent, error) {
	caption := post.Caption()

	switch c.Kind {
	case domain.MediaRedditImage, domain.MediaImgurImage:
		return &domain.DeliveryIntent{Action: domain.ActionSendPhoto, URL: c.SourceURL, Caption: caption}, nil

	case domain.MediaRedditVideo:
		if c.RequiresRemux() {
			if remuxed == nil {
				return nil, fmt.Errorf("%w: remux required but no output", domain.ErrRemuxFailed)
			}
			return &domain.DeliveryIntent{Action: domain.ActionSendVideoFile, Video: remuxed, Caption: caption}, nil
		}
		return &domain.DeliveryIntent{Action: domain.ActionSendVideo, URL: c.SourceURL, Caption: caption}, nil

	case domain.MediaImgurVideo:
		return &domain.DeliveryIntent{Action: domain.ActionSendVideo, URL: c.SourceURL, Caption: caption}, nil

	case domain.MediaImgurGallery:
		return nil, fmt.Errorf("%w: %s", domain.ErrGalleryUnsupported, c.SourceURL)

	case domain.MediaNone:
		return nil, domain.ErrNoMedia

	default:
		return nil, fmt.Errorf("%w: media kind %d", domain.ErrUnsupported, c.Kind)
	}
}
