package tagimg

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPostValidate(t *testing.T) {
	tests := []struct {
		name       string
		post       *Post
		wantErr    bool
		wantAuthor string
	}{
		{"valid", &Post{ID: "1", Author: "alice", CreatedAt: testCreatedAt}, false, "alice"},
		{"no author", &Post{ID: "1", CreatedAt: testCreatedAt}, false, UnknownAuthor},
		{"no id", &Post{Author: "alice", CreatedAt: testCreatedAt}, true, ""},
		{"no created_at", &Post{ID: "1", Author: "alice"}, true, ""},
		{"nil", nil, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.post.Author != tt.wantAuthor {
				t.Errorf("got author %q, want %q", tt.post.Author, tt.wantAuthor)
			}
		})
	}
}

func TestPostURL(t *testing.T) {
	p := &Post{ID: "1234567890"}
	if got, want := p.URL(), "https://twitter.com/user/status/1234567890"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestSearch(t *testing.T) {
	newer := &Post{ID: "2", Text: "newer", Author: "bob", CreatedAt: testCreatedAt}
	older := &Post{ID: "1", Text: "older", Author: "alice", CreatedAt: testCreatedAt.Add(-1)}
	invalid := &Post{Text: "no id", CreatedAt: testCreatedAt}
	errFeed := errors.New("connection refused")

	tests := []struct {
		name        string
		posts       []*Post
		err         error
		limit       int
		wantOutcome Outcome
		wantIDs     []string
	}{
		{"found", []*Post{newer, older}, nil, 5, OutcomeFound, []string{"2", "1"}},
		{"truncated", []*Post{newer, older}, nil, 1, OutcomeFound, []string{"2"}},
		{"invalid dropped", []*Post{invalid, older}, nil, 5, OutcomeFound, []string{"1"}},
		{"empty", nil, nil, 5, OutcomeEmpty, nil},
		{"only invalid", []*Post{invalid}, nil, 5, OutcomeEmpty, nil},
		{"failed", nil, errFeed, 5, OutcomeFailed, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFeed{
				posts: map[string][]*Post{"#go": tt.posts},
				errs:  map[string]error{"#go": tt.err},
			}
			got := Search(context.Background(), f, "#go", tt.limit)
			if got.Outcome != tt.wantOutcome {
				t.Fatalf("got %s, want %s", got.Outcome, tt.wantOutcome)
			}
			var ids []string
			for _, p := range got.Posts {
				ids = append(ids, p.ID)
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Error(diff)
			}
			switch tt.wantOutcome {
			case OutcomeFound:
				if got.Newest().ID != tt.wantIDs[0] {
					t.Errorf("got newest %s, want %s", got.Newest().ID, tt.wantIDs[0])
				}
			case OutcomeFailed:
				if !errors.Is(got.Err, errFeed) {
					t.Errorf("got %v, want %v", got.Err, errFeed)
				}
				fallthrough
			default:
				if got.Newest() != nil {
					t.Error("expected no newest post")
				}
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeFound:  "found",
		OutcomeEmpty:  "empty",
		OutcomeFailed: "failed",
		Outcome(9):    "Outcome(9)",
	} {
		if got := o.String(); got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	}
}
