package x

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/k1LoW/errors"
	"github.com/k1LoW/tagimg/config"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

var (
	authURL  = "https://x.com/i/oauth2/authorize"
	tokenURL = "https://api.x.com/2/oauth2/token"
)

// Scopes are the OAuth 2.0 scopes required to search, upload media and post.
var Scopes = []string{"tweet.read", "tweet.write", "users.read", "media.write", "offline.access"}

// ErrLoginRequired is returned when no usable token is cached and the client is not interactive.
var ErrLoginRequired = fmt.Errorf("no valid token found, run `tagimg login` first")

var _ retryablehttp.LeveledLogger = (*apiLogger)(nil)

// OAuthConfig returns the OAuth 2.0 config for the X API.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
		Scopes: Scopes,
	}
}

// TokenPath returns the path of the cached user token for profile.
func TokenPath(profile string) string {
	if profile == "" {
		return filepath.Join(config.StateHomePath(), "token.json")
	}
	return filepath.Join(config.StateHomePath(), fmt.Sprintf("token-%s.json", profile))
}

func (c *Client) getHTTPClient(ctx context.Context, cfg *oauth2.Config) (_ *http.Client, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	tokenPath := TokenPath(c.profile)
	token, err := tokenFromFile(tokenPath)
	if err != nil {
		if !c.interactive {
			return nil, ErrLoginRequired
		}
		token, err = c.getTokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, token); err != nil {
			return nil, err
		}
	} else if token.Expiry.Before(time.Now()) {
		c.logger.Info("token has expired, refreshing")
		newToken, err := c.refreshToken(ctx, cfg, token)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, newToken); err != nil {
			return nil, err
		}
		token = newToken
	}
	ts := &persistentTokenSource{
		src:    cfg.TokenSource(ctx, token),
		path:   tokenPath,
		last:   token,
		logger: c.logger,
	}
	return c.retryClient(oauth2.NewClient(ctx, ts)), nil
}

func (c *Client) refreshToken(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*oauth2.Token, error) {
	if token.RefreshToken != "" {
		newToken, err := cfg.TokenSource(ctx, token).Token()
		if err == nil {
			c.logger.Info("token refreshed successfully")
			return newToken, nil
		}
		c.logger.Info("failed to refresh token", slog.String("error", err.Error()))
	} else {
		c.logger.Info("no refresh token available")
	}
	if !c.interactive {
		return nil, ErrLoginRequired
	}
	return c.getTokenFromWeb(ctx, cfg)
}

func (c *Client) retryClient(hc *http.Client) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = hc
	retryClient.RetryMax = 10
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = newAPILogger(c.logger)
	return retryClient.StandardClient()
}

// persistentTokenSource saves refreshed tokens so that a long running bot
// keeps a valid refresh token on disk.
type persistentTokenSource struct {
	src    oauth2.TokenSource
	path   string
	last   *oauth2.Token
	logger *slog.Logger
}

func (s *persistentTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || t.AccessToken != s.last.AccessToken {
		if err := saveToken(s.path, t); err != nil {
			s.logger.Error("failed to save refreshed token", slog.String("error", err.Error()))
		}
		s.last = t
	}
	return t, nil
}

func (c *Client) getTokenFromWeb(ctx context.Context, cfg *oauth2.Config) (_ *oauth2.Token, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	codeChallenge := generateCodeChallenge(codeVerifier)

	var authCode string

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(stateBytes)
	listenCtx, listening := context.WithCancel(ctx)
	doneCtx, done := context.WithCancel(ctx)
	handler := http.NewServeMux()
	handler.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("code") == "" {
			return
		}
		authCode = r.URL.Query().Get("code")
		_, _ = w.Write([]byte("Received code. You may now close this tab."))
		done()
	})
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	var listenErr error
	go func() {
		ln, err := net.Listen("tcp", c.callbackAddr)
		if err != nil {
			listenErr = fmt.Errorf("listen: %w", err)
			listening()
			done()
			return
		}
		srv.Addr = ln.Addr().String()
		listening()
		if err := srv.Serve(ln); err != nil {
			if err != http.ErrServerClosed {
				listenErr = fmt.Errorf("serve: %w", err)
				done()
				return
			}
		}
	}()
	<-listenCtx.Done()
	if listenErr != nil {
		return nil, listenErr
	}
	// X requires the callback URL to match the one registered for the app exactly.
	cfg.RedirectURL = "http://" + srv.Addr + "/"

	u := cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"))

	c.logger.Info("opening browser for authorization", slog.String("url", u))
	if err := browser.OpenURL(u); err != nil {
		return nil, err
	}

	<-doneCtx.Done()
	if err := srv.Shutdown(ctx); err != nil {
		return nil, err
	}
	if listenErr != nil {
		return nil, listenErr
	}
	if authCode == "" {
		return nil, fmt.Errorf("authorization was not completed")
	}

	token, err := cfg.Exchange(ctx, authCode,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return nil, err
	}
	return token, nil
}

func tokenFromFile(file string) (_ *oauth2.Token, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("unable to create state directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	return nil
}

// generateCodeVerifier generates a code verifier for PKCE (RFC 7636).
func generateCodeVerifier() (_ string, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateCodeChallenge returns the S256 code challenge of verifier.
func generateCodeChallenge(verifier string) string {
	h := sha256.New()
	h.Write([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

type apiLogger struct {
	l *slog.Logger
}

func (l *apiLogger) Error(msg string, keysAndValues ...any) {
	l.l.Error(msg, append([]any{slog.String("original_log_level", "error")}, keysAndValues...)...)
}
func (l *apiLogger) Info(msg string, keysAndValues ...any) {
	l.l.Info(msg, append([]any{slog.String("original_log_level", "info")}, keysAndValues...)...)
}
func (l *apiLogger) Debug(msg string, keysAndValues ...any) {
	if strings.HasPrefix(msg, "retrying") {
		// promoted so the progress handler can show a spinner
		l.l.Info(msg, append([]any{slog.String("original_log_level", "debug")}, keysAndValues...)...)
		return
	}
	l.l.Debug(msg, append([]any{slog.String("original_log_level", "debug")}, keysAndValues...)...)
}
func (l *apiLogger) Warn(msg string, keysAndValues ...any) {
	l.l.Warn(msg, append([]any{slog.String("original_log_level", "warn")}, keysAndValues...)...)
}

func newAPILogger(l *slog.Logger) retryablehttp.LeveledLogger {
	return &apiLogger{
		l: l.WithGroup("api"),
	}
}
