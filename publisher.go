package tagimg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/k1LoW/errors"
	"github.com/k1LoW/exec"
)

// Environment variable names for the external publish command.
const (
	EnvImagePath = "TAGIMG_IMAGE_PATH"
	EnvImageMIME = "TAGIMG_IMAGE_MIME"
	EnvCaption   = "TAGIMG_CAPTION"
)

// Publisher publishes a rendered image with a caption. A nil error means the post was published.
type Publisher interface {
	Publish(ctx context.Context, caption string, img *Image) error
}

var (
	_ Publisher = (*CommandPublisher)(nil)
	_ Publisher = (*DirPublisher)(nil)
)

// CommandPublisher publishes images by running an external command.
//
// The image is written to a temporary file whose path is passed in
// TAGIMG_IMAGE_PATH; the encoded image is also piped to stdin. The caption is
// passed in TAGIMG_CAPTION. The temporary file is removed after the command exits.
type CommandPublisher struct {
	command string
	tempDir string
	logger  *slog.Logger
}

// NewCommandPublisher creates a CommandPublisher running command with the user's shell.
func NewCommandPublisher(command, tempDir string, logger *slog.Logger) *CommandPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CommandPublisher{
		command: command,
		tempDir: tempDir,
		logger:  logger,
	}
}

func (p *CommandPublisher) Publish(ctx context.Context, caption string, img *Image) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	path, release, err := img.WriteTemp(p.tempDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			p.logger.Error("failed to remove temporary image", slog.String("path", path), slog.String("error", err.Error()))
		}
	}()

	c, args, err := buildCommand(p.command)
	if err != nil {
		return fmt.Errorf("failed to build publish command: %w", err)
	}
	cmd := exec.CommandContext(ctx, c, args...)
	cmd.Stdin = bytes.NewReader(img.Bytes())
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", EnvImagePath, path))
	cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", EnvImageMIME, img.MIMEType()))
	cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", EnvCaption, caption))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run publish command: %w\nstderr: %s", err, stderr.String())
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		p.logger.Debug("publish command output", slog.String("stdout", out))
	}
	return nil
}

// DirPublisher writes images and captions into a directory instead of posting them.
type DirPublisher struct {
	dir    string
	logger *slog.Logger
}

// NewDirPublisher creates a DirPublisher writing into dir.
func NewDirPublisher(dir string, logger *slog.Logger) *DirPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DirPublisher{
		dir:    dir,
		logger: logger,
	}
}

// Publish writes <name>.png and <name>.txt where name is derived from the caption's post.
// An existing image with equivalent content is left untouched.
func (p *DirPublisher) Publish(ctx context.Context, caption string, img *Image) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	name := fmt.Sprintf("%08x", img.Checksum())
	if id, ok := PostIDFromContext(ctx); ok {
		name = id
	}
	imgPath := filepath.Join(p.dir, name+".png")
	if existing, err := LoadImage(imgPath); err == nil && existing.Equivalent(img) {
		p.logger.Info("image unchanged", slog.String("path", imgPath))
	} else {
		if err := os.WriteFile(imgPath, img.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(p.dir, name+".txt"), []byte(caption+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write caption: %w", err)
	}
	return nil
}

type postIDKey struct{}

// ContextWithPostID returns a context carrying the ID of the post being published.
func ContextWithPostID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, postIDKey{}, id)
}

// PostIDFromContext returns the ID of the post being published, if any.
func PostIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(postIDKey{}).(string)
	return id, ok && id != ""
}

func buildCommand(cmdStr string) (string, []string, error) {
	shell, err := detectShell()
	if err != nil {
		return "", nil, err
	}
	return shell, []string{"-c", cmdStr}, nil
}

func detectShell() (string, error) {
	shells := []string{
		os.Getenv("SHELL"),
		"/bin/bash",
		"/bin/sh",
	}
	for _, shell := range shells {
		if shell == "" {
			continue
		}
		if _, err := os.Stat(shell); err == nil {
			return shell, nil
		}
	}
	return "", fmt.Errorf("failed to detect shell")
}
