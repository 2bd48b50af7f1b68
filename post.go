package tagimg

import (
	"fmt"
	"time"
)

// UnknownAuthor is the author of a post whose author could not be resolved.
const UnknownAuthor = "unknown"

// Post is a candidate post fetched from a Feed.
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the required fields of p and fills in defaults.
func (p *Post) Validate() error {
	if p == nil {
		return fmt.Errorf("post is nil")
	}
	if p.ID == "" {
		return fmt.Errorf("post id is empty")
	}
	if p.CreatedAt.IsZero() {
		return fmt.Errorf("post %s has no creation time", p.ID)
	}
	if p.Author == "" {
		p.Author = UnknownAuthor
	}
	return nil
}

// URL returns the permalink of the post.
func (p *Post) URL() string {
	return fmt.Sprintf("https://twitter.com/user/status/%s", p.ID)
}
