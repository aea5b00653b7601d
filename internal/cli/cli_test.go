package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deicod/webity/internal/config"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"views/index.html": "<h1>%{ title }%</h1>",
		"locals.yaml":      "title: Hello\n",
	})

	stdout, _, err := run(t, "render", "views", "--root", dir, "--locals", filepath.Join(dir, "locals.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hello</h1>\n", stdout)
}

func TestRenderCommandJSONLocalsAndOutput(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"views/page.html": "<p>%{ items.join('-') }%</p><script webity>1</script>",
		"locals.json":     `{"items": ["a", "b"]}`,
	})
	out := filepath.Join(dir, "out.html")

	stdout, _, err := run(t, "render", "views", "page", "--root", dir,
		"--locals", filepath.Join(dir, "locals.json"), "--out", out, "--scripts")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<p>a-b</p><script webity>1</script>\n<script webity>1</script>", string(data))
}

func TestRenderCommandDebug(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"views/index.html": "<p>%{ 1 }%</p>"})

	_, stderr, err := run(t, "render", "views", "--root", dir, "--debug")
	require.NoError(t, err)
	assert.Contains(t, stderr, "loading template")
	assert.Contains(t, stderr, "directive rendered")
}

func TestRenderCommandMissingTemplate(t *testing.T) {
	_, _, err := run(t, "render", "views", "--root", t.TempDir())
	require.Error(t, err)
}

func TestRenderCommandArgs(t *testing.T) {
	_, _, err := run(t, "render")
	require.Error(t, err)
}

func TestLoadLocals(t *testing.T) {
	locals, err := loadLocals("")
	require.NoError(t, err)
	assert.Empty(t, locals)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- a\n- b\n"), 0o644))
	_, err = loadLocals(bad)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	locals, err = loadLocals(empty)
	require.NoError(t, err)
	assert.NotNil(t, locals)
}

func TestRoutesCommand(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"views/index.html":             "home",
		"views/blog/{slug}/index.html": "post",
		"views/blog/index.html":        "blog",
		"views/lost/deep/index.html":   "lost",
	})

	stdout, _, err := run(t, "routes", "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "GET /{$}")
	assert.Contains(t, stdout, "GET /blog/{slug}")
	assert.Contains(t, stdout, "views/lost\n")
	assert.Contains(t, stdout, "unreachable: views/lost/deep")
}

func TestNewServer(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"views/index.html":             "<h1>%{ site }%</h1>",
		"views/blog/index.html":        "<h1>%{ title }%</h1>",
		"views/blog/{slug}/index.html": "<h1>%{ title }% %{ params.slug }%</h1>",
	})
	t.Chdir(dir)

	cfg, err := config.Parse([]byte(`
routes:
  - path: /
    locals: { site: Example }
`))
	require.NoError(t, err)

	r, err := newServer(cfg, &options{stderr: &bytes.Buffer{}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "<h1>Example</h1>", rec.Body.String())
}

func TestNewServerWithMap(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"views/index.html":             "<h1>home</h1>",
		"views/blog/index.html":        "<h1>%{ title }%</h1>",
		"views/blog/{slug}/index.html": "<h1>%{ title }% %{ params.slug }%</h1>",
	})
	t.Chdir(dir)

	cfg, err := config.Parse([]byte(`
routes:
  - path: /blog
    map:
      blog: { title: Blog }
      "blog/{slug}": { title: Post }
`))
	require.NoError(t, err)

	r, err := newServer(cfg, &options{stderr: &bytes.Buffer{}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog/intro", nil))
	assert.Equal(t, "<h1>Post intro</h1>", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVersionFlag(t *testing.T) {
	stdout, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "webity version dev")
}
