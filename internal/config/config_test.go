package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := []byte(`
views: pages
log:
  level: debug
ignore:
  - "**/partials"
routes:
  - path: /
    locals:
      site: Example
      year: 2024
  - path: /blog
    method: post
    map:
      blog: { title: Blog }
      "blog/{slug}": { title: Post }
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "pages", cfg.Views)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, []string{"**/partials"}, cfg.Ignore)

	require.Len(t, cfg.Routes, 2)
	assert.Equal(t, "GET", cfg.Routes[0].Method)
	assert.Equal(t, "Example", cfg.Routes[0].Locals["site"])
	assert.Equal(t, 2024, cfg.Routes[0].Locals["year"])
	assert.Equal(t, "POST", cfg.Routes[1].Method)
	assert.Equal(t, "Post", cfg.Routes[1].Map["blog/{slug}"]["title"])
	assert.Equal(t, "Blog", cfg.Routes[1].Map["blog"]["title"])
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"syntax", "views: [", "invalid YAML"},
		{"empty views", "views: ''", "views must not be empty"},
		{"bad glob", "ignore: ['[']", "invalid pattern"},
		{"missing path", "routes: [{method: GET}]", "path must not be empty"},
		{"bad method", "routes: [{path: views, method: TRACE}]", "unsupported method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: ':8080'\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "views", cfg.Views)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, ErrFileNotFound))

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o644))
	_, err = Load(empty)
	assert.True(t, errors.Is(err, ErrEmptyFile))
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
