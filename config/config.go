package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/k1LoW/expand"
)

const appName = "tagimg"

var (
	homePath       string
	configHomePath string
	dataHomePath   string
	stateHomePath  string
)

// Publisher kinds.
const (
	PublisherX       = "x"
	PublisherCommand = "command"
	PublisherDir     = "dir"
)

type Config struct {
	// Path of the OpenType/TrueType font (or collection)
	FontPath string `yaml:"fontPath,omitempty" json:"fontPath,omitempty"`
	// Font size in pixels
	FontSize int `yaml:"fontSize,omitempty" json:"fontSize,omitempty"`
	// Margin around the text in pixels
	Margin *int `yaml:"margin,omitempty" json:"margin,omitempty"`
	// Extra space between body lines in pixels
	LineSpacing *int `yaml:"lineSpacing,omitempty" json:"lineSpacing,omitempty"`
	// Width of the image in pixels
	ImageWidth int `yaml:"imageWidth,omitempty" json:"imageWidth,omitempty"`
	// Background color as "r,g,b"
	BackgroundColor string `yaml:"backgroundColor,omitempty" json:"backgroundColor,omitempty"`
	// Text color as "r,g,b"
	TextColor string `yaml:"textColor,omitempty" json:"textColor,omitempty"`
	// Time zone of the timestamp printed on images
	TimeZone string `yaml:"timeZone,omitempty" json:"timeZone,omitempty"`

	// Tags to search, processed in order
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	// Interval between cycles in minutes
	IntervalMinutes int `yaml:"intervalMinutes,omitempty" json:"intervalMinutes,omitempty"`
	// Maximum number of posts requested per tag
	MaxCandidates int `yaml:"maxCandidates,omitempty" json:"maxCandidates,omitempty"`
	// Language filter of searches
	Lang *string `yaml:"lang,omitempty" json:"lang,omitempty"`
	// Caption template of republished posts ({{CEL expression}})
	CaptionTemplate string `yaml:"captionTemplate,omitempty" json:"captionTemplate,omitempty"`

	// Publisher kind: x, command or dir
	Publisher string `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	// Command run by the command publisher
	PublishCommand string `yaml:"publishCommand,omitempty" json:"publishCommand,omitempty"`
	// Directory written by the dir publisher
	OutputDir string `yaml:"outputDir,omitempty" json:"outputDir,omitempty"`

	// X API credentials
	ClientID     string `yaml:"clientID,omitempty" json:"clientID,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty" json:"clientSecret,omitempty"`
	BearerToken  string `yaml:"bearerToken,omitempty" json:"bearerToken,omitempty"`

	// Path of the loaded config file, empty if none
	path string
}

func init() {
	var err error
	homePath, err = os.UserHomeDir()
	if err != nil {
		panic(fmt.Sprintf("failed to get home directory: %v", err))
	}
}

// Default returns the config used when nothing is configured.
func Default() *Config {
	margin := 20
	lineSpacing := 10
	lang := "ja"
	return &Config{
		FontPath:        filepath.Join("fonts", "NotoSansJP-Regular.otf"),
		FontSize:        30,
		Margin:          &margin,
		LineSpacing:     &lineSpacing,
		ImageWidth:      1000,
		BackgroundColor: "255,255,255",
		TextColor:       "0,0,0",
		TimeZone:        "UTC",
		Tags:            []string{"#Python"},
		IntervalMinutes: 60,
		MaxCandidates:   5,
		Lang:            &lang,
		CaptionTemplate: "元ツイート: {{post.url}}\n{{tag}} #自動生成",
		Publisher:       PublisherX,
	}
}

// Load loads the configuration.
// It searches for config files in the following order:
// 1. $XDG_CONFIG_HOME/tagimg/config-{profile}.yml
// 2. $XDG_CONFIG_HOME/tagimg/config.yml
// ${VAR} in the file is expanded with environment variables. Values not set
// in the file fall back to defaults, and environment variables override both.
func Load(profile string) (*Config, error) {
	var configBasePaths []string
	if profile != "" {
		configBasePaths = append(configBasePaths, filepath.Join(configPath(), fmt.Sprintf("config-%s", profile)))
	}
	configBasePaths = append(configBasePaths, filepath.Join(configPath(), "config"))
	cfg := &Config{}
LOOP:
	for _, basePath := range configBasePaths {
		for _, ext := range []string{".yml", ".yaml"} {
			p := basePath + ext
			b, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			if err := yaml.Unmarshal(expand.ExpandenvYAMLBytes(b), cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config %s: %w", p, err)
			}
			cfg.path = p
			break LOOP
		}
	}
	cfg.merge(Default())
	if err := cfg.overrideFromEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path of the loaded config file.
func (c *Config) Path() string {
	return c.path
}

// Interval returns the interval between cycles.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Location returns the time zone of the timestamp printed on images.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

func (c *Config) merge(d *Config) {
	if c.FontPath == "" {
		c.FontPath = d.FontPath
	}
	if c.FontSize == 0 {
		c.FontSize = d.FontSize
	}
	if c.Margin == nil {
		c.Margin = d.Margin
	}
	if c.LineSpacing == nil {
		c.LineSpacing = d.LineSpacing
	}
	if c.ImageWidth == 0 {
		c.ImageWidth = d.ImageWidth
	}
	if c.BackgroundColor == "" {
		c.BackgroundColor = d.BackgroundColor
	}
	if c.TextColor == "" {
		c.TextColor = d.TextColor
	}
	if c.TimeZone == "" {
		c.TimeZone = d.TimeZone
	}
	if len(c.Tags) == 0 {
		c.Tags = d.Tags
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = d.IntervalMinutes
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = d.MaxCandidates
	}
	if c.Lang == nil {
		c.Lang = d.Lang
	}
	if c.CaptionTemplate == "" {
		c.CaptionTemplate = d.CaptionTemplate
	}
	if c.Publisher == "" {
		c.Publisher = d.Publisher
	}
}

// overrideFromEnv applies the environment variables understood by the bot.
func (c *Config) overrideFromEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}
	numPtr := func(key string, dst **int) error {
		var n int
		if *dst != nil {
			n = **dst
		}
		if err := num(key, &n); err != nil {
			return err
		}
		*dst = &n
		return nil
	}

	str("FONT_PATH", &c.FontPath)
	str("BG_COLOR", &c.BackgroundColor)
	str("TEXT_COLOR", &c.TextColor)
	str("TIME_ZONE", &c.TimeZone)
	str("CAPTION_TEMPLATE", &c.CaptionTemplate)
	str("PUBLISHER", &c.Publisher)
	str("PUBLISH_COMMAND", &c.PublishCommand)
	str("OUTPUT_DIR", &c.OutputDir)
	str("X_CLIENT_ID", &c.ClientID)
	str("X_CLIENT_SECRET", &c.ClientSecret)
	str("X_BEARER_TOKEN", &c.BearerToken)
	if v, ok := lookup("SEARCH_LANG"); ok {
		c.Lang = &v
	}
	if v, ok := lookup("SEARCH_HASHTAG"); ok && v != "" {
		c.Tags = SplitTags(v)
	}
	for key, dst := range map[string]*int{
		"FONT_SIZE":       &c.FontSize,
		"IMAGE_WIDTH":     &c.ImageWidth,
		"SEARCH_INTERVAL": &c.IntervalMinutes,
		"MAX_TWEETS":      &c.MaxCandidates,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	if err := numPtr("MARGIN", &c.Margin); err != nil {
		return err
	}
	if err := numPtr("LINE_SPACING", &c.LineSpacing); err != nil {
		return err
	}
	return nil
}

// SplitTags splits a comma separated list of tags, dropping empty entries.
func SplitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		tags = append(tags, t)
	}
	return tags
}

// configPath returns the path to the configuration directory.
func configPath() string {
	if configHomePath != "" {
		return configHomePath
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		configHomePath = filepath.Join(v, appName)
	} else {
		configHomePath = filepath.Join(homePath, ".config", appName)
	}
	return configHomePath
}

// ConfigHomePath returns the path to the configuration directory.
func ConfigHomePath() string {
	return configPath()
}

// DataHomePath returns the path to the data home directory.
func DataHomePath() string {
	if dataHomePath != "" {
		return dataHomePath
	}
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		dataHomePath = filepath.Join(v, appName)
	} else {
		dataHomePath = filepath.Join(homePath, ".local", "share", appName)
	}
	return dataHomePath
}

// StateHomePath returns the path to the state home directory (tokens, logs, error dumps).
func StateHomePath() string {
	if stateHomePath != "" {
		return stateHomePath
	}
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		stateHomePath = filepath.Join(v, appName)
	} else {
		stateHomePath = filepath.Join(homePath, ".local", "state", appName)
	}
	return stateHomePath
}
