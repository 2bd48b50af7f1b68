package template

import (
	"testing"
)

func TestExpand(t *testing.T) {
	post := map[string]any{
		"id":     "1234567890",
		"url":    "https://twitter.com/user/status/1234567890",
		"author": "alice",
		"text":   "hello world",
	}
	tests := []struct {
		name     string
		template string
		store    map[string]any
		expected string
		wantErr  bool
	}{
		{
			name:     "simple variable substitution",
			template: "Hello {{name}}!",
			store:    map[string]any{"name": "World"},
			expected: "Hello World!",
		},
		{
			name:     "default caption",
			template: "元ツイート: {{post.url}}\n{{tag}} #自動生成",
			store:    map[string]any{"post": post, "tag": "#golang"},
			expected: "元ツイート: https://twitter.com/user/status/1234567890\n#golang #自動生成",
		},
		{
			name:     "dot notation for nested maps",
			template: "@{{post.author}} ({{post.id}})",
			store:    map[string]any{"post": post},
			expected: "@alice (1234567890)",
		},
		{
			name:     "map[string]string access",
			template: "Path: {{env.PATH}}",
			store: map[string]any{
				"env": map[string]string{"PATH": "/usr/bin"},
			},
			expected: "Path: /usr/bin",
		},
		{
			name:     "integer values",
			template: "Count: {{count}}",
			store:    map[string]any{"count": 42},
			expected: "Count: 42",
		},
		{
			name:     "no variables to expand",
			template: "No variables here",
			store:    map[string]any{"unused": "value"},
			expected: "No variables here",
		},
		{
			name:     "variable with spaces",
			template: "{{ tag }}",
			store:    map[string]any{"tag": "#Python"},
			expected: "#Python",
		},
		{
			name:     "CEL ternary operator",
			template: `{{tag == "" ? "#none" : tag}}`,
			store:    map[string]any{"tag": ""},
			expected: "#none",
		},
		{
			name:     "CEL string functions",
			template: "{{post.text.size()}}",
			store:    map[string]any{"post": map[string]string{"text": "test"}},
			expected: "4",
		},
		{
			name:     "CEL string concatenation",
			template: `{{tag + " " + "#自動生成"}}`,
			store:    map[string]any{"tag": "#Python"},
			expected: "#Python #自動生成",
		},
		{
			name:     "undefined variable",
			template: "{{undefined}}",
			store:    map[string]any{"other": "value"},
			wantErr:  true,
		},
		{
			name:     "invalid CEL expression",
			template: "{{tag == }}",
			store:    map[string]any{"tag": "go"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Expand(tt.template, tt.store)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expand() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Expand() unexpected error: %v", err)
				return
			}
			if result != tt.expected {
				t.Errorf("Expand() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCompile(t *testing.T) {
	store := map[string]any{
		"post": map[string]any{},
		"tag":  "",
	}
	tests := []struct {
		template string
		wantErr  bool
	}{
		{"{{post.url}} {{tag}}", false},
		{"plain caption", false},
		{"{{user}}", true},
		{"{{tag +}}", true},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			err := Compile(tt.template, store)
			if (err != nil) != tt.wantErr {
				t.Errorf("Compile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateCELEnv(t *testing.T) {
	store := map[string]any{
		"tag":   "#Python",
		"count": 42,
		"env": map[string]string{
			"HOME": "/home/user",
		},
		"post": map[string]any{
			"id": "1",
		},
	}

	env, err := createCELEnv(store)
	if err != nil {
		t.Fatalf("createCELEnv() error = %v", err)
	}
	_, issues := env.Compile(`tag + " test"`)
	if issues != nil && issues.Err() != nil {
		t.Errorf("Failed to compile expression: %v", issues.Err())
	}
}
