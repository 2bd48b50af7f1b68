package tagimg

import (
	"context"
	"fmt"
)

// Feed searches for posts matching a tag.
//
// Search returns at most limit posts, newest first. Finding nothing is not an
// error: it returns an empty slice and a nil error. A non-nil error is only
// returned for transport or authentication failures.
type Feed interface {
	Search(ctx context.Context, tag string, limit int) ([]*Post, error)
}

type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeEmpty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// SearchResult is the classified result of a Feed search.
type SearchResult struct {
	Outcome Outcome
	Posts   []*Post
	Err     error
}

// Newest returns the first post of a found result.
func (r *SearchResult) Newest() *Post {
	if r.Outcome != OutcomeFound {
		return nil
	}
	return r.Posts[0]
}

// Search runs f.Search and classifies its result. Posts that fail validation
// are dropped; a result with no valid post is empty.
func Search(ctx context.Context, f Feed, tag string, limit int) *SearchResult {
	posts, err := f.Search(ctx, tag, limit)
	if err != nil {
		return &SearchResult{Outcome: OutcomeFailed, Err: err}
	}
	valid := make([]*Post, 0, len(posts))
	for _, p := range posts {
		if err := p.Validate(); err != nil {
			continue
		}
		valid = append(valid, p)
	}
	if limit > 0 && len(valid) > limit {
		valid = valid[:limit]
	}
	if len(valid) == 0 {
		return &SearchResult{Outcome: OutcomeEmpty}
	}
	return &SearchResult{Outcome: OutcomeFound, Posts: valid}
}
