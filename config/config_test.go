package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}

func setConfigHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	configHomePath = ""
	t.Cleanup(func() {
		configHomePath = ""
	})
	dir := filepath.Join(tmpDir, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		profile string
		env     map[string]string
		want    *Config
	}{
		{
			name: "no config file",
			want: Default(),
		},
		{
			name: "config file",
			files: map[string]string{
				"config.yml": `
fontPath: /usr/share/fonts/noto/NotoSansCJK-Regular.ttc
fontSize: 24
margin: 0
tags:
  - "#golang"
  - "#rust"
intervalMinutes: 15
publisher: command
publishCommand: ./post.sh
clientID: ${TAGIMG_TEST_CLIENT_ID}
`,
			},
			env: map[string]string{"TAGIMG_TEST_CLIENT_ID": "client-from-env"},
			want: func() *Config {
				c := Default()
				c.FontPath = "/usr/share/fonts/noto/NotoSansCJK-Regular.ttc"
				c.FontSize = 24
				c.Margin = intPtr(0)
				c.Tags = []string{"#golang", "#rust"}
				c.IntervalMinutes = 15
				c.Publisher = PublisherCommand
				c.PublishCommand = "./post.sh"
				c.ClientID = "client-from-env"
				return c
			}(),
		},
		{
			name: "profile config file",
			files: map[string]string{
				"config.yml":        `imageWidth: 800`,
				"config-night.yaml": `backgroundColor: "1,1,1"`,
				"config-night.yml":  "backgroundColor: \"0,0,0\"\ntextColor: \"255,255,255\"",
				"config-other.yml":  `imageWidth: 1`,
			},
			profile: "night",
			want: func() *Config {
				c := Default()
				c.BackgroundColor = "0,0,0"
				c.TextColor = "255,255,255"
				return c
			}(),
		},
		{
			name: "fallback from missing profile",
			files: map[string]string{
				"config.yml": `imageWidth: 800`,
			},
			profile: "missing",
			want: func() *Config {
				c := Default()
				c.ImageWidth = 800
				return c
			}(),
		},
		{
			name: "environment overrides config file",
			files: map[string]string{
				"config.yml": `
fontSize: 24
tags: ["#golang"]
`,
			},
			env: map[string]string{
				"FONT_SIZE":      "40",
				"SEARCH_HASHTAG": "#Go, #Rust,,",
				"LINE_SPACING":   "0",
				"SEARCH_LANG":    "",
			},
			want: func() *Config {
				c := Default()
				c.FontSize = 40
				c.Tags = []string{"#Go", "#Rust"}
				c.LineSpacing = intPtr(0)
				c.Lang = strPtr("")
				return c
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setConfigHome(t)
			for name, content := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
					t.Fatal(err)
				}
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := Load(tt.profile)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreUnexported(Config{})); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestLoadPath(t *testing.T) {
	dir := setConfigHome(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path() != "" {
		t.Errorf("got path %q, want empty", cfg.Path())
	}
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte("fontSize: 12\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path() != p {
		t.Errorf("got path %q, want %q", cfg.Path(), p)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := setConfigHome(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte("tags: [unclosed\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(""); err == nil {
		t.Error("expected error for broken YAML")
	}
}

func TestOverrideFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "strings",
			env: map[string]string{
				"FONT_PATH":        "/fonts/a.otf",
				"BG_COLOR":         "1,2,3",
				"TEXT_COLOR":       "4,5,6",
				"TIME_ZONE":        "Asia/Tokyo",
				"PUBLISHER":        "dir",
				"OUTPUT_DIR":       "/tmp/out",
				"X_CLIENT_ID":      "id",
				"X_CLIENT_SECRET":  "secret",
				"X_BEARER_TOKEN":   "bearer",
				"CAPTION_TEMPLATE": "{{post.url}}",
			},
			check: func(t *testing.T, c *Config) {
				got := []string{c.FontPath, c.BackgroundColor, c.TextColor, c.TimeZone, c.Publisher, c.OutputDir, c.ClientID, c.ClientSecret, c.BearerToken, c.CaptionTemplate}
				want := []string{"/fonts/a.otf", "1,2,3", "4,5,6", "Asia/Tokyo", "dir", "/tmp/out", "id", "secret", "bearer", "{{post.url}}"}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Error(diff)
				}
			},
		},
		{
			name: "numbers",
			env: map[string]string{
				"FONT_SIZE":       " 18 ",
				"IMAGE_WIDTH":     "600",
				"SEARCH_INTERVAL": "5",
				"MAX_TWEETS":      "3",
				"MARGIN":          "8",
			},
			check: func(t *testing.T, c *Config) {
				got := []int{c.FontSize, c.ImageWidth, c.IntervalMinutes, c.MaxCandidates, *c.Margin, *c.LineSpacing}
				want := []int{18, 600, 5, 3, 8, 10}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Error(diff)
				}
				if c.Interval() != 5*time.Minute {
					t.Errorf("got interval %s", c.Interval())
				}
			},
		},
		{
			name:    "invalid number",
			env:     map[string]string{"SEARCH_INTERVAL": "hourly"},
			wantErr: true,
		},
		{
			name:    "invalid pointer number",
			env:     map[string]string{"MARGIN": "1.5"},
			wantErr: true,
		},
		{
			name: "empty values are ignored",
			env:  map[string]string{"FONT_PATH": "", "FONT_SIZE": "", "SEARCH_HASHTAG": ""},
			check: func(t *testing.T, c *Config) {
				if diff := cmp.Diff(Default(), c, cmpopts.IgnoreUnexported(Config{})); diff != "" {
					t.Error(diff)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			err := c.overrideFromEnv(func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			})
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, c)
		})
	}
}

func TestValidate(t *testing.T) {
	fontPath := filepath.Join(t.TempDir(), "font.otf")
	if err := os.WriteFile(fontPath, []byte("font"), 0o600); err != nil {
		t.Fatal(err)
	}
	valid := func() *Config {
		c := Default()
		c.FontPath = fontPath
		c.ClientID = "client-id"
		return c
	}

	tests := []struct {
		name         string
		modify       func(c *Config)
		wantProblems int
	}{
		{"valid", func(c *Config) {}, 0},
		{"search with bearer token and publish to dir", func(c *Config) {
			c.ClientID = ""
			c.BearerToken = "bearer"
			c.Publisher = PublisherDir
		}, 0},
		{"publish to x without client id", func(c *Config) {
			c.ClientID = ""
			c.BearerToken = "bearer"
		}, 1},
		{"no credentials", func(c *Config) {
			c.ClientID = ""
			c.Publisher = PublisherDir
		}, 1},
		{"command publisher without command", func(c *Config) { c.Publisher = PublisherCommand }, 1},
		{"unknown publisher", func(c *Config) { c.Publisher = "mastodon" }, 1},
		{"missing font", func(c *Config) { c.FontPath = fontPath + ".missing" }, 1},
		{"font is a directory", func(c *Config) { c.FontPath = filepath.Dir(fontPath) }, 1},
		{"width too small for margin", func(c *Config) { c.ImageWidth = 40 }, 1},
		{"bad colors", func(c *Config) {
			c.BackgroundColor = "white"
			c.TextColor = "0,0,256"
		}, 2},
		{"bad time zone", func(c *Config) { c.TimeZone = "Mars/Olympus_Mons" }, 1},
		{"everything wrong", func(c *Config) {
			c.FontSize = 0
			c.ImageWidth = 0
			c.Margin = intPtr(-1)
			c.LineSpacing = intPtr(-1)
			c.Tags = nil
			c.IntervalMinutes = 0
			c.MaxCandidates = -1
		}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			err := c.Validate()
			if tt.wantProblems == 0 {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want *ValidationError", err)
			}
			if len(verr.Problems) != tt.wantProblems {
				t.Errorf("got %d problems, want %d:\n%v", len(verr.Problems), tt.wantProblems, err)
			}
		})
	}
}

func TestParseRGB(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"255,255,255", color.RGBA{R: 255, G: 255, B: 255, A: 255}, false},
		{"0,0,0", color.RGBA{A: 255}, false},
		{" 12, 34 ,56 ", color.RGBA{R: 12, G: 34, B: 56, A: 255}, false},
		{"256,0,0", color.RGBA{}, true},
		{"-1,0,0", color.RGBA{}, true},
		{"1,2", color.RGBA{}, true},
		{"1,2,3,4", color.RGBA{}, true},
		{"#ffffff", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRGB(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("got err %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"#Python", []string{"#Python"}},
		{"#Python,#Go", []string{"#Python", "#Go"}},
		{" #Python , , #Go ", []string{"#Python", "#Go"}},
		{"", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SplitTags(tt.in)); diff != "" {
			t.Error(diff)
		}
	}
}
