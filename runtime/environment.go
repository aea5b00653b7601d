package runtime

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Loader represents a template loader interface
type Loader interface {
	Load(name string) (string, error)
}

// FileSystemLoader loads templates from the file system
type FileSystemLoader struct {
	basePaths []string
	mu        sync.RWMutex
}

// NewFileSystemLoader creates a new file system loader. Template paths are
// looked up below each base path in order. When no paths are provided it
// defaults to the current working directory.
func NewFileSystemLoader(basePaths ...string) *FileSystemLoader {
	paths := filteredSearchPaths(basePaths)
	if len(paths) == 0 {
		paths = append(paths, ".")
	}

	return &FileSystemLoader{
		basePaths: paths,
	}
}

// Load loads a template from the file system
func (l *FileSystemLoader) Load(name string) (string, error) {
	var tried []string
	for _, basePath := range l.SearchPath() {
		fullPath := filepath.Join(basePath, filepath.FromSlash(name))
		tried = append(tried, fullPath)

		data, err := os.ReadFile(fullPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", err
		}
		return string(data), nil
	}

	return "", fmt.Errorf("template %q not found (tried %s): %w", name, strings.Join(tried, ", "), os.ErrNotExist)
}

// TemplateModTime returns the modification time for the requested template.
func (l *FileSystemLoader) TemplateModTime(name string) (time.Time, error) {
	if name == "" {
		return time.Time{}, errors.New("template name cannot be empty")
	}

	var lastErr error
	for _, base := range l.SearchPath() {
		info, err := os.Stat(filepath.Join(base, filepath.FromSlash(name)))
		if err == nil {
			return info.ModTime(), nil
		}
		if errors.Is(err, os.ErrNotExist) {
			lastErr = err
			continue
		}
		return time.Time{}, err
	}

	if lastErr != nil {
		return time.Time{}, lastErr
	}
	return time.Time{}, os.ErrNotExist
}

// AddSearchPath appends a new search path to the loader. Empty paths are
// ignored.
func (l *FileSystemLoader) AddSearchPath(path string) {
	if path == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.basePaths = append(l.basePaths, path)
}

// SearchPath returns a copy of the configured search paths.
func (l *FileSystemLoader) SearchPath() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.basePaths...)
}

func filteredSearchPaths(paths []string) []string {
	filtered := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// MapLoader loads templates from a map
type MapLoader struct {
	templates map[string]string
	mu        sync.RWMutex
}

// NewMapLoader creates a new map loader
func NewMapLoader(templates map[string]string) *MapLoader {
	return &MapLoader{
		templates: templates,
	}
}

// Load loads a template from the map
func (l *MapLoader) Load(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	source, ok := l.templates[name]
	if !ok {
		return "", fmt.Errorf("template %q not found: %w", name, fs.ErrNotExist)
	}
	return source, nil
}

// Set adds or replaces a template
func (l *MapLoader) Set(name, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[name] = source
}

// FSLoader loads templates from an fs.FS such as an embed.FS
type FSLoader struct {
	fsys fs.FS
}

// NewFSLoader creates a loader reading from fsys
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

// Load reads a template from the file system
func (l *FSLoader) Load(name string) (string, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TemplateModTime returns the modification time fsys reports for name
func (l *FSLoader) TemplateModTime(name string) (time.Time, error) {
	info, err := fs.Stat(l.fsys, name)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Environment holds what renders share: the loader, the logger, the
// evaluation policy and the caches. It is safe for concurrent use.
type Environment struct {
	loader   Loader
	logger   *slog.Logger
	policy   Policy
	programs *ProgramCache
	sources  *SourceCache
}

// Option configures an Environment
type Option func(*Environment)

// WithLoader sets the template loader
func WithLoader(loader Loader) Option {
	return func(env *Environment) {
		env.loader = loader
	}
}

// WithLogger sets the logger diagnostics and evaluation errors go to
func WithLogger(logger *slog.Logger) Option {
	return func(env *Environment) {
		if logger != nil {
			env.logger = logger
		}
	}
}

// WithPolicy sets the limits scripts and expressions run under
func WithPolicy(policy Policy) Option {
	return func(env *Environment) {
		env.policy = policy.Clone()
	}
}

// WithCache enables caching of template sources. A ttl of zero keeps
// entries until the file behind them changes.
func WithCache(ttl time.Duration, maxSize int) Option {
	return func(env *Environment) {
		env.sources = NewSourceCache(ttl, maxSize)
	}
}

// WithProgramCacheSize bounds the number of parsed expressions and scripts
// kept between renders
func WithProgramCacheSize(maxSize int) Option {
	return func(env *Environment) {
		env.programs = NewProgramCache(maxSize)
	}
}

// NewEnvironment creates a new environment. Without options it has no
// loader and discards its log output.
func NewEnvironment(opts ...Option) *Environment {
	env := &Environment{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy:   DefaultPolicy(),
		programs: NewProgramCache(0),
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// Render renders the template identified by (dir, file) against locals.
// An empty file renders dir/index.html; a file starting with `$` is looked
// up in the first segment of dir. With debug set, progress is logged at
// debug level.
func (env *Environment) Render(dir, file string, locals map[string]interface{}, debug bool) (*Result, error) {
	if dir == "" {
		return nil, errors.New("render: directory must not be empty")
	}
	call := &renderCall{env: env, locals: cloneLocals(locals), debug: debug}
	return call.render(ResolveReference(dir, file))
}

// Evaluate evaluates one directive expression as if it appeared in a
// template of dir
func (env *Environment) Evaluate(dir, source string, locals map[string]interface{}) (string, error) {
	call := &renderCall{env: env, locals: cloneLocals(locals)}
	return call.evaluate(Reference{Dir: dir}, source)
}

func (env *Environment) load(path string) (string, error) {
	if env.loader == nil {
		return "", errors.New("no loader configured")
	}
	if env.sources != nil {
		if source, ok := env.sources.Get(path, env.loader); ok {
			return source, nil
		}
	}

	source, err := env.loader.Load(path)
	if err != nil {
		return "", err
	}

	if env.sources != nil {
		modTime, _ := getModTime(env.loader, path)
		env.sources.Set(path, source, modTime)
	}
	return source, nil
}

func (env *Environment) newContext(name string) *Context {
	return newContext(name, env.logger, env.policy)
}

// Loader returns the environment's template loader
func (env *Environment) Loader() Loader {
	return env.loader
}

// Logger returns the environment's logger
func (env *Environment) Logger() *slog.Logger {
	return env.logger
}

// ClearCache drops every cached source and parsed program
func (env *Environment) ClearCache() {
	if env.sources != nil {
		env.sources.Clear()
	}
	env.programs.Clear()
}

// CacheSize returns the number of cached template sources
func (env *Environment) CacheSize() int {
	if env.sources == nil {
		return 0
	}
	return env.sources.Size()
}
