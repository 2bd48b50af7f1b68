package tagimg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/k1LoW/errors"
	"github.com/k1LoW/tagimg/template"
)

const (
	DefaultMaxCandidates   = 5
	DefaultCaptionTemplate = "元ツイート: {{post.url}}\n{{tag}} #自動生成"
)

type Status string

const (
	StatusPublished     Status = "published"
	StatusSkipped       Status = "skipped"
	StatusFeedFailed    Status = "feed_failed"
	StatusRenderFailed  Status = "render_failed"
	StatusCaptionFailed Status = "caption_failed"
	StatusPublishFailed Status = "publish_failed"
	StatusFailed        Status = "failed"
)

// TagResult is the outcome of processing one tag in a cycle.
type TagResult struct {
	Tag    string
	PostID string
	Status Status
	Err    error
}

// CycleReport is the outcome of one pass over all tags.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []*TagResult
}

// Published returns the number of tags whose post was published.
func (r *CycleReport) Published() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusPublished {
			n++
		}
	}
	return n
}

// Failed returns the results that ended with an error.
func (r *CycleReport) Failed() []*TagResult {
	var failed []*TagResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Bot searches posts for each tag, renders the newest one and republishes it.
type Bot struct {
	feed            Feed
	publisher       Publisher
	renderer        *Renderer
	tags            []string
	maxCandidates   int
	captionTemplate string
	logger          *slog.Logger
}

type Option func(*Bot) error

func WithFeed(f Feed) Option {
	return func(b *Bot) error {
		b.feed = f
		return nil
	}
}

func WithPublisher(p Publisher) Option {
	return func(b *Bot) error {
		b.publisher = p
		return nil
	}
}

func WithRenderer(r *Renderer) Option {
	return func(b *Bot) error {
		b.renderer = r
		return nil
	}
}

func WithTags(tags ...string) Option {
	return func(b *Bot) error {
		b.tags = append(b.tags, tags...)
		return nil
	}
}

func WithMaxCandidates(n int) Option {
	return func(b *Bot) error {
		if n <= 0 {
			return fmt.Errorf("max candidates must be positive: %d", n)
		}
		b.maxCandidates = n
		return nil
	}
}

func WithCaptionTemplate(tmpl string) Option {
	return func(b *Bot) error {
		b.captionTemplate = tmpl
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) error {
		b.logger = logger
		return nil
	}
}

// New creates a new Bot.
func New(opts ...Option) (_ *Bot, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	b := &Bot{
		maxCandidates:   DefaultMaxCandidates,
		captionTemplate: DefaultCaptionTemplate,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if b.feed == nil {
		return nil, fmt.Errorf("feed is required")
	}
	if b.publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if b.renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if len(b.tags) == 0 {
		return nil, fmt.Errorf("at least one tag is required")
	}
	if err := template.Compile(b.captionTemplate, captionStore(&Post{}, "")); err != nil {
		return nil, fmt.Errorf("invalid caption template: %w", err)
	}
	return b, nil
}

// RunCycle processes every tag once, in order. Failures of one tag are
// logged and recorded in the report; they never stop the cycle.
func (b *Bot) RunCycle(ctx context.Context) *CycleReport {
	report := &CycleReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := b.logger.With(slog.String("cycle_id", report.ID))
	logger.Info("cycle started", slog.Int("tags", len(b.tags)))
	for _, tag := range b.tags {
		res := b.processTag(ctx, logger.With(slog.String("tag", tag)), tag)
		report.Results = append(report.Results, res)
	}
	report.FinishedAt = time.Now()
	logger.Info("cycle completed",
		slog.Int("published", report.Published()),
		slog.Int("failed", len(report.Failed())),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report
}

func (b *Bot) processTag(ctx context.Context, logger *slog.Logger, tag string) (res *TagResult) {
	res = &TagResult{Tag: tag}
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("panic while processing tag %s: %v", tag, r)
			logger.Error("failed to process tag", slog.String("error", res.Err.Error()))
		}
	}()

	logger.Info("searching posts", slog.Int("limit", b.maxCandidates))
	sr := Search(ctx, b.feed, tag, b.maxCandidates)
	switch sr.Outcome {
	case OutcomeFailed:
		res.Status = StatusFeedFailed
		res.Err = sr.Err
		logger.Error("failed to search posts", slog.String("error", sr.Err.Error()))
		return res
	case OutcomeEmpty:
		res.Status = StatusSkipped
		logger.Info("skipped tag", slog.String("reason", "no posts found"))
		return res
	}

	post := sr.Newest()
	res.PostID = post.ID
	logger = logger.With(slog.String("post_id", post.ID))
	logger.Debug("rendering post", slog.String("author", post.Author))

	img, err := b.renderer.RenderPost(post)
	if err != nil {
		res.Status = StatusRenderFailed
		res.Err = err
		logger.Error("failed to render post", slog.String("error", err.Error()))
		return res
	}
	defer img.Release()

	caption, err := b.Caption(post, tag)
	if err != nil {
		res.Status = StatusCaptionFailed
		res.Err = err
		logger.Error("failed to build caption", slog.String("error", err.Error()))
		return res
	}

	if err := b.publisher.Publish(ContextWithPostID(ctx, post.ID), caption, img); err != nil {
		res.Status = StatusPublishFailed
		res.Err = err
		logger.Error("failed to publish post", slog.String("error", err.Error()))
		return res
	}
	res.Status = StatusPublished
	logger.Info("published post", slog.Int("width", img.Width()), slog.Int("height", img.Height()))
	return res
}

// Caption builds the caption of the republished post for p found under tag.
func (b *Bot) Caption(p *Post, tag string) (string, error) {
	return template.Expand(b.captionTemplate, captionStore(p, tag))
}

func captionStore(p *Post, tag string) map[string]any {
	return map[string]any{
		"post": map[string]any{
			"id":         p.ID,
			"url":        p.URL(),
			"author":     p.Author,
			"text":       p.Text,
			"created_at": p.CreatedAt.UTC().Format(TimestampLayout),
		},
		"tag": tag,
		"env": template.EnvironToMap(),
	}
}
