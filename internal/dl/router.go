// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/pkg/bridge"
)

// Route binds a library file format to the loader that opens it.
type Route struct {
	// Format names the route in logs ("native", "lua", ...).
	Format string
	// Suffix selects the route for explicit file paths. An empty suffix
	// matches executables without a recognised suffix.
	Suffix string
	// Templates are file names tried when searching a directory for a
	// library. "%s" is replaced with the library name.
	Templates []string
	Loader    Loader
}

// Registrar is implemented by loaders that serve path-less, in-process
// libraries.
type Registrar interface {
	Loader
	Has(name string) bool
}

// Router opens a library with the loader matching its file format. Names
// without a path are served by the in-process loader when registered there,
// otherwise the search path is scanned.
type Router struct {
	inProcess  Registrar
	routes     []Route
	searchPath []string
}

// Compile-time interface check.
var _ Loader = (*Router)(nil)

// NewRouter creates a router. Routes with longer suffixes take precedence.
func NewRouter(inProcess Registrar, searchPath []string, routes ...Route) *Router {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Suffix) > len(sorted[j].Suffix)
	})
	return &Router{
		inProcess:  inProcess,
		routes:     sorted,
		searchPath: append([]string(nil), searchPath...),
	}
}

// SearchPath returns the directories scanned for path-less names.
func (r *Router) SearchPath() []string {
	return append([]string(nil), r.searchPath...)
}

// Open resolves name and path to a file (or in-process registration) and
// opens it.
func (r *Router) Open(ctx context.Context, name, path string) (Library, error) {
	if path == "" && r.inProcess != nil && r.inProcess.Has(name) {
		return r.inProcess.Open(ctx, name, "")
	}

	file, route, err := r.Resolve(name, path)
	if err != nil {
		return nil, err
	}
	lib, err := route.Loader.Open(ctx, name, file)
	if err != nil {
		return nil, oops.In("dl").With("library", name).With("path", file).With("format", route.Format).Wrap(err)
	}
	return lib, nil
}

// Resolve returns the file and route that would serve name. A path naming a
// directory is searched like a search path entry; an empty path searches the
// router's search path in order, first directory with a match wins.
func (r *Router) Resolve(name, path string) (string, Route, error) {
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return "", Route{}, oops.In("dl").Code(bridge.StatusNotFound.Code()).
				With("library", name).With("path", path).Wrap(fmt.Errorf("%w: %w", ErrLibraryNotFound, err))
		}
		if !info.IsDir() {
			route, ok := r.routeFor(path, info)
			if !ok {
				return "", Route{}, oops.In("dl").Code(bridge.StatusInvalidArg.Code()).
					With("library", name).With("path", path).Errorf("no loader for %s", filepath.Base(path))
			}
			return path, route, nil
		}
		return r.searchDirs(name, []string{path})
	}
	return r.searchDirs(name, r.searchPath)
}

func (r *Router) searchDirs(name string, dirs []string) (string, Route, error) {
	for _, dir := range dirs {
		var found []string
		var routes []Route
		for _, route := range r.routes {
			for _, tmpl := range route.Templates {
				candidate := filepath.Join(dir, fmt.Sprintf(tmpl, name))
				if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
					found = append(found, candidate)
					routes = append(routes, route)
				}
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], routes[0], nil
		default:
			return "", Route{}, oops.In("dl").Code(bridge.StatusInvalidArg.Code()).
				With("library", name).With("dir", dir).With("candidates", found).
				Errorf("ambiguous library %q: %d files match in %s", name, len(found), dir)
		}
	}
	return "", Route{}, oops.In("dl").Code(bridge.StatusNotFound.Code()).
		With("library", name).With("search_path", dirs).
		Wrap(fmt.Errorf("%w: %q", ErrLibraryNotFound, name))
}

func (r *Router) routeFor(path string, info os.FileInfo) (Route, bool) {
	base := filepath.Base(path)
	for _, route := range r.routes {
		if route.Suffix != "" && strings.HasSuffix(base, route.Suffix) {
			return route, true
		}
	}
	if info.Mode()&0o111 != 0 {
		for _, route := range r.routes {
			if route.Suffix == "" {
				return route, true
			}
		}
	}
	return Route{}, false
}
