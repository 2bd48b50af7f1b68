// Package x is a client for the X API v2 that searches recent posts and publishes images.
package x

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/k1LoW/errors"
	"github.com/k1LoW/tagimg"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL  = "https://api.x.com"
	DefaultLang     = "ja"
	minSearchResult = 10
	maxSearchResult = 100
)

// DefaultCallbackAddr is the listen address of the OAuth callback server.
// http://127.0.0.1:8080/ must be registered as a callback URL of the app.
const DefaultCallbackAddr = "127.0.0.1:8080"

var (
	_ tagimg.Feed      = (*Client)(nil)
	_ tagimg.Publisher = (*Client)(nil)
)

// ErrUnauthorized is matched by API errors with status 401.
var ErrUnauthorized = fmt.Errorf("unauthorized")

// ErrNoUserContext is returned by requests that need user authorization when only a bearer token is configured.
var ErrNoUserContext = fmt.Errorf("user authorization is required, set a client ID and run `tagimg login`")

// APIError is an error response of the X API.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	msg := e.Title
	if e.Detail != "" {
		if msg != "" {
			msg += ": "
		}
		msg += e.Detail
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("x api error (status %d): %s", e.StatusCode, msg)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Client talks to the X API v2.
type Client struct {
	baseURL      string
	lang         string
	profile      string
	clientID     string
	clientSecret string
	bearerToken  string
	interactive  bool
	callbackAddr string
	userClient   *http.Client
	searchClient *http.Client
	logger       *slog.Logger
}

type Option func(*Client) error

// WithCredentials sets the OAuth 2.0 client credentials of the app.
func WithCredentials(clientID, clientSecret string) Option {
	return func(c *Client) error {
		c.clientID = clientID
		c.clientSecret = clientSecret
		return nil
	}
}

// WithBearerToken sets an app-only token used for searching.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithHTTPClient sets the client used for user context requests, skipping OAuth.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.userClient = hc
		return nil
	}
}

func WithBaseURL(u string) Option {
	return func(c *Client) error {
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("invalid base URL %s: %w", u, err)
		}
		c.baseURL = strings.TrimSuffix(u, "/")
		return nil
	}
}

// WithLang sets the language filter of searches. Empty disables the filter.
func WithLang(lang string) Option {
	return func(c *Client) error {
		c.lang = lang
		return nil
	}
}

func WithProfile(profile string) Option {
	return func(c *Client) error {
		if profile != "" && strings.Trim(profile, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-") != "" {
			return fmt.Errorf("invalid profile name: %s, only alphanumeric characters, underscores, and hyphens are allowed", profile)
		}
		c.profile = profile
		return nil
	}
}

// WithInteractive allows the client to open a browser to authorize when no valid token is cached.
func WithInteractive(interactive bool) Option {
	return func(c *Client) error {
		c.interactive = interactive
		return nil
	}
}

// WithCallbackAddr sets the listen address of the local OAuth callback server.
func WithCallbackAddr(addr string) Option {
	return func(c *Client) error {
		c.callbackAddr = addr
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// New creates a new Client.
func New(ctx context.Context, opts ...Option) (_ *Client, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	c := &Client{
		baseURL:      DefaultBaseURL,
		lang:         DefaultLang,
		callbackAddr: DefaultCallbackAddr,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.userClient == nil && c.clientID == "" && c.bearerToken == "" {
		return nil, fmt.Errorf("client ID or bearer token is required")
	}
	if c.userClient == nil && c.clientID != "" {
		hc, err := c.getHTTPClient(ctx, OAuthConfig(c.clientID, c.clientSecret))
		if err != nil {
			return nil, err
		}
		c.userClient = hc
	}
	c.searchClient = c.userClient
	if c.bearerToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.bearerToken, TokenType: "Bearer"})
		c.searchClient = c.retryClient(oauth2.NewClient(ctx, ts))
	}
	return c, nil
}

// Login runs the authorization flow in the browser and caches the token.
func Login(ctx context.Context, opts ...Option) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	c := &Client{
		callbackAddr: DefaultCallbackAddr,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	if c.clientID == "" {
		return fmt.Errorf("client ID is required")
	}
	token, err := c.getTokenFromWeb(ctx, OAuthConfig(c.clientID, c.clientSecret))
	if err != nil {
		return err
	}
	return saveToken(TokenPath(c.profile), token)
}

type searchResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		AuthorID  string `json:"author_id"`
		CreatedAt string `json:"created_at"`
	} `json:"data"`
	Includes struct {
		Users []User `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

// User is an X account.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Query returns the recent search query for tag.
func (c *Client) Query(tag string) string {
	q := tag + " -is:retweet"
	if c.lang != "" {
		q += " lang:" + c.lang
	}
	return q
}

// Search returns up to limit recent posts matching tag, newest first.
func (c *Client) Search(ctx context.Context, tag string, limit int) (_ []*tagimg.Post, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	q := url.Values{}
	q.Set("query", c.Query(tag))
	q.Set("max_results", fmt.Sprintf("%d", min(max(limit, minSearchResult), maxSearchResult)))
	q.Set("tweet.fields", "created_at,author_id,text")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "username")
	c.logger.Info("searching recent posts", slog.String("query", c.Query(tag)))

	var res searchResponse
	if err := c.do(ctx, c.searchClient, http.MethodGet, "/2/tweets/search/recent?"+q.Encode(), nil, "", &res); err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, nil
	}
	usernames := map[string]string{}
	for _, u := range res.Includes.Users {
		usernames[u.ID] = u.Username
	}
	posts := make([]*tagimg.Post, 0, len(res.Data))
	for _, d := range res.Data {
		createdAt, err := time.Parse(time.RFC3339, d.CreatedAt)
		if err != nil {
			c.logger.Warn("skipped post with invalid created_at", slog.String("id", d.ID), slog.String("created_at", d.CreatedAt))
			continue
		}
		author, ok := usernames[d.AuthorID]
		if !ok {
			author = tagimg.UnknownAuthor
		}
		posts = append(posts, &tagimg.Post{
			ID:        d.ID,
			Text:      d.Text,
			Author:    author,
			CreatedAt: createdAt,
		})
		if len(posts) == limit {
			break
		}
	}
	c.logger.Info("found posts", slog.Int("count", len(posts)))
	return posts, nil
}

// Publish uploads img and creates a post with caption and the image attached.
func (c *Client) Publish(ctx context.Context, caption string, img *tagimg.Image) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	mediaID, err := c.UploadMedia(ctx, img.Bytes(), img.MIMEType())
	if err != nil {
		return err
	}
	id, err := c.CreatePost(ctx, caption, mediaID)
	if err != nil {
		return err
	}
	c.logger.Info("created post", slog.String("id", id))
	return nil
}

// UploadMedia uploads an image and returns its media ID.
func (c *Client) UploadMedia(ctx context.Context, data []byte, mimeType string) (_ string, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	if err := mw.WriteField("media_category", "tweet_image"); err != nil {
		return "", err
	}
	if err := mw.WriteField("media_type", mimeType); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("media", "image.png")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	var res struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, c.userClient, http.MethodPost, "/2/media/upload", body, mw.FormDataContentType(), &res); err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}
	if res.Data.ID == "" {
		return "", fmt.Errorf("failed to upload media: empty media id")
	}
	return res.Data.ID, nil
}

// CreatePost creates a post with text and the given media attached and returns its ID.
func (c *Client) CreatePost(ctx context.Context, text string, mediaIDs ...string) (_ string, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	req := map[string]any{"text": text}
	if len(mediaIDs) > 0 {
		req["media"] = map[string]any{"media_ids": mediaIDs}
	}
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	var res struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, c.userClient, http.MethodPost, "/2/tweets", bytes.NewReader(b), "application/json", &res); err != nil {
		return "", fmt.Errorf("failed to create post: %w", err)
	}
	return res.Data.ID, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (_ *User, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	var res struct {
		Data User `json:"data"`
	}
	if err := c.do(ctx, c.userClient, http.MethodGet, "/2/users/me", nil, "", &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body io.Reader, contentType string, v any) error {
	if hc == nil {
		return ErrNoUserContext
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newAPIError(res.StatusCode, b)
	}
	if v == nil || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	var res struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		e.Detail = strings.TrimSpace(string(body))
		return e
	}
	e.Title = res.Title
	e.Detail = res.Detail
	if e.Detail == "" && len(res.Errors) > 0 {
		e.Detail = res.Errors[0].Message
	}
	return e
}
