package router

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deicod/webity/runtime"
)

func pageFS() fstest.MapFS {
	return fstest.MapFS{
		"views/index.html":                {Data: []byte(`<h1>%{ site }%</h1><p>%{ query.q ?? 'none' }%</p>`)},
		"views/assets/style.css":          {Data: []byte("h1 {}")},
		"views/blog/index.html":           {Data: []byte(`<h1>blog</h1>`)},
		"views/blog/{slug}/index.html":    {Data: []byte(`<h1>%{ params.slug }%</h1><p>%{ site ?? '' }%</p>`)},
		"views/drafts/index.html":         {Data: []byte(`<h1>draft</h1>`)},
		"views/orphan/nested/index.html":  {Data: []byte(`<h1>unreachable</h1>`)},
		"views/blog/{slug}/notes.txt":     {Data: []byte("notes")},
		"views/blog/{slug}/extra/x.html":  {Data: []byte("x")},
		"views/blog/{slug}/extra/.hidden": {Data: []byte("")},
	}
}

func newTestRouter(t *testing.T, opts ...Option) *Router {
	t.Helper()
	fsys := pageFS()
	env := runtime.NewEnvironment(runtime.WithLoader(runtime.NewFSLoader(fsys)))
	return New(env, append([]Option{WithFS(fsys)}, opts...)...)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListRoutes(t *testing.T) {
	r := newTestRouter(t)

	routes, err := r.ListRoutes("views")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"views",
		"views/assets",
		"views/blog",
		"views/blog/{slug}",
		"views/blog/{slug}/extra",
		"views/drafts",
		"views/orphan",
	}, routes)
}

func TestListRoutesIgnore(t *testing.T) {
	r := newTestRouter(t, WithIgnore("**/drafts", "views/blog/*"))

	routes, err := r.ListRoutes("views")
	require.NoError(t, err)
	assert.Equal(t, []string{"views", "views/assets", "views/blog", "views/orphan"}, routes)
}

func TestListRoutesMissingDirectory(t *testing.T) {
	_, err := newTestRouter(t).ListRoutes("nope")
	assert.Error(t, err)
}

func TestPages(t *testing.T) {
	pages, err := newTestRouter(t, WithIgnore("**/drafts")).Pages("views")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"views",
		"views/blog",
		"views/blog/{slug}",
		"views/orphan/nested",
	}, pages)
}

func TestRoute(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.Route("", http.MethodGet, map[string]interface{}{"site": "Example"}))

	rec := get(t, r, "/?q=search")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>Example</h1><p>search</p>", rec.Body.String())

	rec = get(t, r, "/")
	assert.Equal(t, "<h1>Example</h1><p>none</p>", rec.Body.String())

	rec = get(t, r, "/blog/hello")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<h1>hello</h1><p>Example</p>", rec.Body.String())

	rec = get(t, r, "/assets")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, r, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouteStaticLocalsWin(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.Route("/blog", http.MethodGet, map[string]interface{}{
		"params": map[string]interface{}{"slug": "fixed"},
	}))

	rec := get(t, r, "/blog/hello")
	assert.Equal(t, "<h1>fixed</h1><p></p>", rec.Body.String())
}

func TestRouteMethod(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.Route("/blog", http.MethodPost, nil))

	rec := get(t, r, "/blog")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/blog", nil))
	assert.Equal(t, "<h1>blog</h1>", rec.Body.String())
}

func TestRouteErrors(t *testing.T) {
	r := newTestRouter(t)

	err := r.Route("/orphan", http.MethodGet, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not contain an index.html file")

	require.NoError(t, r.Route("/blog", http.MethodGet, nil))
	err = r.Route("/blog", http.MethodGet, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestRouteWithMap(t *testing.T) {
	r := newTestRouter(t, WithIgnore("**/drafts"))
	err := r.RouteWithMap("", http.MethodGet, map[string]RouteData{
		"": {Locals: map[string]interface{}{"site": "Mapped"}},
		"blog/{slug}": {Fetch: func(req *http.Request) (map[string]interface{}, error) {
			return map[string]interface{}{"site": "fetched " + req.PathValue("slug")}, nil
		}},
		"blog": {Fetch: func(*http.Request) (map[string]interface{}, error) {
			return nil, errors.New("backend down")
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "<h1>Mapped</h1><p>none</p>", get(t, r, "/").Body.String())
	assert.Equal(t, "<h1>go</h1><p>fetched go</p>", get(t, r, "/blog/go").Body.String())
	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/blog").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/drafts").Code)
}

type failingRenderer struct{}

func (failingRenderer) Render(string, string, map[string]interface{}, bool) (*runtime.Result, error) {
	return nil, errors.New("boom")
}

func TestRenderFailure(t *testing.T) {
	var logs bytes.Buffer
	r := New(failingRenderer{},
		WithFS(pageFS()),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, r.Route("/blog", http.MethodGet, nil))

	rec := get(t, r, "/blog")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "failed to render page")
	assert.Contains(t, logs.String(), "error=boom")
}

func TestPattern(t *testing.T) {
	r := New(nil, WithViews("pages/"))
	assert.Equal(t, "GET /{$}", r.Pattern("get", "pages"))
	assert.Equal(t, "POST /blog/{slug}", r.Pattern(http.MethodPost, "pages/blog/{slug}"))
}

func TestRequestID(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, r.Route("/blog", http.MethodGet, nil))

	rec := get(t, r, "/blog")
	id := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "request_id="+id)
	assert.Contains(t, logs.String(), "status=200")

	req := httptest.NewRequest(http.MethodGet, "/blog", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "client-id", rec.Header().Get(RequestIDHeader))
}

func TestUse(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.Route("/blog", http.MethodGet, nil))

	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, name)
				assert.NotEmpty(t, RequestID(req.Context()))
				next.ServeHTTP(w, req)
			})
		}
	}
	r.Use(mark("outer"), mark("inner"))

	rec := get(t, r, "/blog")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestHandlerChainCached(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.Route("/blog", http.MethodGet, nil))

	builds := 0
	r.Use(func(next http.Handler) http.Handler {
		builds++
		return next
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(t, r, "/blog").Code)
	}
	assert.Equal(t, 1, builds)

	var seen bool
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			seen = true
			next.ServeHTTP(w, req)
		})
	})
	assert.Equal(t, http.StatusOK, get(t, r, "/blog").Code)
	assert.True(t, seen)
	assert.Equal(t, 2, builds)
}

func TestListenAndServeShutdown(t *testing.T) {
	r := newTestRouter(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- r.ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
