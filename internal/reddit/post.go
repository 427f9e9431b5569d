package reddit

// listing is one element of the array returned by a post page's .json view.
type listing struct {
	Kind string       `json:"kind"`
	Data *listingData `json:"data"`
}

type listingData struct {
	Children []child `json:"children"`
}

type child struct {
	Kind string `json:"kind"`
	Data *Post  `json:"data"`
}

// Post is the metadata of a single Reddit post.
type Post struct {
	Subreddit           string `json:"subreddit"`
	Title               string `json:"title"`
	Permalink           string `json:"permalink"`
	Domain              string `json:"domain"`
	URL                 string `json:"url"`
	Thumbnail           string `json:"thumbnail"`
	IsVideo             bool   `json:"is_video"`
	Media               *Media `json:"media"`
	CrosspostParentList []Post `json:"crosspost_parent_list"`
}

// Media holds the embedded media descriptors of a post. Only Reddit's own
// video descriptor is used; other providers' oembed blocks are ignored.
type Media struct {
	RedditVideo *RedditVideo `json:"reddit_video"`
}

// RedditVideo describes a v.redd.it DASH video.
type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Duration    int    `json:"duration"`
	IsGIF       bool   `json:"is_gif"`
}

// Caption formats the text attached to re-hosted media.
func (p *Post) Caption() string {
	return "r/" + p.Subreddit + " - " + p.Title + "\n\nreddit.com" + p.Permalink
}

func (p *Post) redditVideo() *RedditVideo {
	if p.Media == nil {
		return nil
	}
	return p.Media.RedditVideo
}
