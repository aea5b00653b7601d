// Package router serves a tree of webity pages over HTTP. Every directory
// of the views tree holding an index.html becomes a route; directory names
// of the form {name} become path parameters.
package router

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deicod/webity/internal/logging"
	"github.com/deicod/webity/runtime"
)

// Renderer renders a page directory. *runtime.Environment implements it.
type Renderer interface {
	Render(dir, file string, locals map[string]interface{}, debug bool) (*runtime.Result, error)
}

// Fetcher computes the locals of a request
type Fetcher func(r *http.Request) (map[string]interface{}, error)

// RouteData gives one route either static locals or a fetcher. Fetch wins
// when both are set.
type RouteData struct {
	Locals map[string]interface{}
	Fetch  Fetcher
}

// Middleware wraps the router's handler
type Middleware func(http.Handler) http.Handler

// Router maps page directories to HTTP routes
type Router struct {
	renderer   Renderer
	fsys       fs.FS
	views      string
	ignore     []string
	logger     *slog.Logger
	debug      bool
	mux        *http.ServeMux
	middleware []Middleware
	patterns   map[string]bool
	mu         sync.Mutex
	chain      atomic.Pointer[handlerChain]
}

// handlerChain is the mux wrapped in middleware and request logging
type handlerChain struct {
	http.Handler
}

// Option configures a Router
type Option func(*Router)

// WithFS sets the file system routes are discovered in. It must agree with
// the renderer's loader. Defaults to the working directory.
func WithFS(fsys fs.FS) Option {
	return func(r *Router) {
		r.fsys = fsys
	}
}

// WithViews sets the directory holding the page tree. Defaults to "views".
func WithViews(dir string) Option {
	return func(r *Router) {
		r.views = path.Clean(dir)
	}
}

// WithIgnore skips directories matching any of the doublestar globs
func WithIgnore(patterns ...string) Option {
	return func(r *Router) {
		r.ignore = append(r.ignore, patterns...)
	}
}

// WithLogger sets the request logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDebug sets the debug flag pages are rendered with
func WithDebug(debug bool) Option {
	return func(r *Router) {
		r.debug = debug
	}
}

// New creates a router rendering pages with renderer
func New(renderer Renderer, opts ...Option) *Router {
	r := &Router{
		renderer: renderer,
		fsys:     os.DirFS("."),
		views:    "views",
		logger:   logging.Nop(),
		debug:    true,
		mux:      http.NewServeMux(),
		patterns: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route serves the page directory views/p and every page reachable below
// it with method. Requests render with {params, query} merged with locals;
// locals win on conflicts.
func (r *Router) Route(p, method string, locals map[string]interface{}) error {
	routes, err := r.routes(p)
	if err != nil {
		return err
	}
	for _, route := range routes {
		if err := r.respond(route, method, staticLocals(locals)); err != nil {
			return err
		}
	}
	return nil
}

// RouteWithMap serves the pages below views/p like Route, taking each
// page's locals from routeMap keyed by its path relative to views. Pages
// missing from the map get only {params, query}.
func (r *Router) RouteWithMap(p, method string, routeMap map[string]RouteData) error {
	routes, err := r.routes(p)
	if err != nil {
		return err
	}
	for _, route := range routes {
		data := routeMap[r.relative(route)]
		fetch := data.Fetch
		if fetch == nil {
			fetch = staticLocals(data.Locals)
		}
		if err := r.respond(route, method, fetch); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) routes(p string) ([]string, error) {
	base := path.Join(r.views, p)
	if !r.hasIndex(base) {
		return nil, fmt.Errorf("%s does not contain an %s file", base, runtime.DefaultFile)
	}
	return r.ListRoutes(base)
}

func staticLocals(locals map[string]interface{}) Fetcher {
	return func(*http.Request) (map[string]interface{}, error) {
		return locals, nil
	}
}

// relative strips the views prefix from a route directory
func (r *Router) relative(route string) string {
	if route == r.views {
		return ""
	}
	return strings.TrimPrefix(route, r.views+"/")
}

// Pattern returns the ServeMux pattern a route directory is served under
func (r *Router) Pattern(method, route string) string {
	rel := r.relative(route)
	if rel == "" {
		return strings.ToUpper(method) + " /{$}"
	}
	return strings.ToUpper(method) + " /" + rel
}

var wildcard = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(\.\.\.)?\}`)

func (r *Router) respond(route, method string, fetch Fetcher) error {
	pattern := r.Pattern(method, route)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.patterns[pattern] {
		return fmt.Errorf("route %q registered twice", pattern)
	}
	r.patterns[pattern] = true

	var names []string
	for _, m := range wildcard.FindAllStringSubmatch(r.relative(route), -1) {
		names = append(names, m[1])
	}

	return r.handle(pattern, func(w http.ResponseWriter, req *http.Request) {
		params := make(map[string]interface{}, len(names))
		for _, name := range names {
			params[name] = req.PathValue(name)
		}

		locals, err := fetch(req)
		if err != nil {
			r.fail(w, req, http.StatusInternalServerError, "failed to fetch locals", err)
			return
		}

		merged := map[string]interface{}{
			"params": params,
			"query":  queryLocals(req),
		}
		for k, v := range locals {
			merged[k] = v
		}

		result, err := r.renderer.Render(route, "", merged, r.debug)
		if err != nil {
			status := http.StatusInternalServerError
			if runtime.IsReadError(err) {
				status = http.StatusNotFound
			}
			r.fail(w, req, status, "failed to render page", err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(result.HTML))
	})
}

// handle registers h, reporting patterns ServeMux rejects as errors
func (r *Router) handle(pattern string, h http.HandlerFunc) (err error) {
	defer func() {
		if v := recover(); v != nil {
			delete(r.patterns, pattern)
			err = fmt.Errorf("route %q: %v", pattern, v)
		}
	}()
	r.mux.HandleFunc(pattern, h)
	return nil
}

// queryLocals flattens single-valued query parameters to strings
func queryLocals(req *http.Request) map[string]interface{} {
	query := req.URL.Query()
	out := make(map[string]interface{}, len(query))
	for k, v := range query {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}

func (r *Router) fail(w http.ResponseWriter, req *http.Request, status int, msg string, err error) {
	r.logger.Error(msg, "path", req.URL.Path, "request_id", RequestID(req.Context()), "error", err)
	http.Error(w, http.StatusText(status), status)
}

// Patterns returns the registered ServeMux patterns
func (r *Router) Patterns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.patterns))
	for p := range r.patterns {
		out = append(out, p)
	}
	return out
}

// Use appends middleware. The first added runs outermost, inside the
// request logger.
func (r *Router) Use(middleware ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
	r.chain.Store(nil)
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Handler().ServeHTTP(w, req)
}

// Handler returns the router with its middleware applied. The chain is
// built on first use and rebuilt only after Use.
func (r *Router) Handler() http.Handler {
	if c := r.chain.Load(); c != nil {
		return c.Handler
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.chain.Load(); c != nil {
		return c.Handler
	}

	var h http.Handler = r.mux
	for i := len(r.middleware) - 1; i >= 0; i-- {
		h = r.middleware[i](h)
	}
	c := &handlerChain{Handler: r.logRequests(h)}
	r.chain.Store(c)
	return c.Handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", addr, "views", r.views)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}
