package runtime

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"
)

func TestFileSystemLoaderSearchPathFallback(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	if err := os.MkdirAll(filepath.Join(dir2, "views"), 0o755); err != nil {
		t.Fatalf("failed to create views: %v", err)
	}
	expected := "<p>from second path</p>"
	if err := os.WriteFile(filepath.Join(dir2, "views", "index.html"), []byte(expected), 0o644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}

	loader := NewFileSystemLoader(dir1)
	loader.AddSearchPath(dir2)

	content, err := loader.Load("views/index.html")
	if err != nil {
		t.Fatalf("expected to load template, got error: %v", err)
	}
	if content != expected {
		t.Fatalf("expected content %q, got %q", expected, content)
	}

	paths := loader.SearchPath()
	if len(paths) != 2 || paths[0] != dir1 || paths[1] != dir2 {
		t.Fatalf("unexpected search path order: %v", paths)
	}

	paths[0] = "mutated"
	if loader.SearchPath()[0] != dir1 {
		t.Fatal("SearchPath should return a copy")
	}
}

func TestFileSystemLoaderNotFound(t *testing.T) {
	loader := NewFileSystemLoader(t.TempDir(), "")
	if len(loader.SearchPath()) != 1 {
		t.Fatalf("expected empty paths to be dropped, got %v", loader.SearchPath())
	}

	_, err := loader.Load("missing.html")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
	if _, err := loader.TemplateModTime("missing.html"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
	if _, err := loader.TemplateModTime(""); err == nil {
		t.Fatal("expected an error for an empty name")
	}
}

func TestFileSystemLoaderDefaultsToWorkingDirectory(t *testing.T) {
	loader := NewFileSystemLoader()
	if paths := loader.SearchPath(); len(paths) != 1 || paths[0] != "." {
		t.Fatalf("expected working directory, got %v", paths)
	}
}

func TestMapLoader(t *testing.T) {
	loader := NewMapLoader(map[string]string{"views/index.html": "a"})

	if source, err := loader.Load("views/index.html"); err != nil || source != "a" {
		t.Fatalf("unexpected load result %q, %v", source, err)
	}
	if _, err := loader.Load("views/other.html"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}

	loader.Set("views/other.html", "b")
	if source, err := loader.Load("views/other.html"); err != nil || source != "b" {
		t.Fatalf("unexpected load result %q, %v", source, err)
	}
}

func TestFSLoader(t *testing.T) {
	modTime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	loader := NewFSLoader(fstest.MapFS{
		"views/index.html": {Data: []byte("<p>embedded</p>"), ModTime: modTime},
	})

	source, err := loader.Load("views/index.html")
	if err != nil || source != "<p>embedded</p>" {
		t.Fatalf("unexpected load result %q, %v", source, err)
	}

	got, err := loader.TemplateModTime("views/index.html")
	if err != nil || !got.Equal(modTime) {
		t.Fatalf("unexpected mod time %v, %v", got, err)
	}

	if _, err := loader.Load("views/missing.html"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

func TestRenderFromFSLoader(t *testing.T) {
	env := NewEnvironment(WithLoader(NewFSLoader(fstest.MapFS{
		"site/index.html": {Data: []byte("<p>%{ 2 * 3 }%</p>")},
	})))

	result := mustRender(t, env, "site", "", nil)
	if result.HTML != "<p>6</p>" {
		t.Fatalf("unexpected html %q", result.HTML)
	}
}

func TestRenderWithoutLoader(t *testing.T) {
	_, err := NewEnvironment().Render("views", "", nil, false)
	if !IsReadError(err) {
		t.Fatalf("expected ReadError, got %T: %v", err, err)
	}
}
