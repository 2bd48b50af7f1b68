package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"
)

// ValidationError lists every problem found in a config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Validate checks the config. Any problem is fatal at startup.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, a ...any) {
		problems = append(problems, fmt.Sprintf(format, a...))
	}

	if c.FontSize <= 0 {
		add("fontSize must be positive: %d", c.FontSize)
	}
	if c.ImageWidth <= 0 {
		add("imageWidth must be positive: %d", c.ImageWidth)
	}
	margin, lineSpacing := 0, 0
	if c.Margin != nil {
		margin = *c.Margin
	}
	if c.LineSpacing != nil {
		lineSpacing = *c.LineSpacing
	}
	if margin < 0 {
		add("margin must not be negative: %d", margin)
	}
	if lineSpacing < 0 {
		add("lineSpacing must not be negative: %d", lineSpacing)
	}
	if c.ImageWidth <= 2*margin {
		add("imageWidth (%d) must be greater than twice the margin (%d)", c.ImageWidth, margin)
	}
	if _, err := ParseRGB(c.BackgroundColor); err != nil {
		add("backgroundColor: %v", err)
	}
	if _, err := ParseRGB(c.TextColor); err != nil {
		add("textColor: %v", err)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		add("timeZone: %v", err)
	}
	if len(c.Tags) == 0 {
		add("at least one tag is required")
	}
	if c.IntervalMinutes <= 0 {
		add("intervalMinutes must be positive: %d", c.IntervalMinutes)
	}
	if c.MaxCandidates <= 0 {
		add("maxCandidates must be positive: %d", c.MaxCandidates)
	}
	if fi, err := os.Stat(c.FontPath); err != nil {
		add("font file not found: %s", c.FontPath)
	} else if fi.IsDir() {
		add("font path is a directory: %s", c.FontPath)
	}
	// searching always goes through the X API
	if c.ClientID == "" && c.BearerToken == "" {
		add("X_CLIENT_ID (or X_BEARER_TOKEN for search only) is required")
	}
	switch c.Publisher {
	case PublisherX:
		if c.ClientID == "" {
			add("X_CLIENT_ID is required to publish to X")
		}
	case PublisherCommand:
		if c.PublishCommand == "" {
			add("publishCommand is required for the command publisher")
		}
	case PublisherDir:
	default:
		add("unknown publisher: %q (x, command or dir)", c.Publisher)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ParseRGB parses an "r,g,b" triple with each component in 0..255 into an opaque color.
func ParseRGB(s string) (color.RGBA, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected r,g,b", s)
	}
	var v [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color %q: component %q is not in 0..255", s, p)
		}
		v[i] = uint8(n)
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: 0xff}, nil
}
