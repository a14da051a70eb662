// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/internal/dl/loaders"
	"github.com/holomush/bridgehost/internal/dl/static"
	"github.com/holomush/bridgehost/internal/property"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// DefaultHostVersion is the host version bridges are checked against unless
// WithHostVersion says otherwise.
const DefaultHostVersion = "6.3.1"

// Option configures a Registry.
type Option func(*Registry)

// WithLoader sets the loader used for libraries not registered in process.
func WithLoader(l dl.Loader) Option {
	return func(r *Registry) { r.loader = l }
}

// WithProperties sets the property store.
func WithProperties(s *property.Store) Option {
	return func(r *Registry) { r.props = s }
}

// WithHostVersion sets the version minimum-version checks compare against.
// An unparseable version disables the checks and is logged.
func WithHostVersion(v string) Option {
	return func(r *Registry) { r.hostVersion = v }
}

// WithSignalCapacity bounds the number of signals per kind.
func WithSignalCapacity(n int) Option {
	return func(r *Registry) { r.signalCap = n }
}

// WithSlotCapacity bounds the number of slots per signal.
func WithSlotCapacity(n int) Option {
	return func(r *Registry) { r.slotCap = n }
}

// WithSearchPath sets the directories the default loader searches.
func WithSearchPath(dirs ...string) Option {
	return func(r *Registry) { r.searchPath = dirs }
}

// WithStatic sets the in-process library table. Built-in libraries are
// registered into it.
func WithStatic(st *static.Loader) Option {
	return func(r *Registry) { r.static = st }
}

// managerSet is every kind manager, created together.
type managerSet struct {
	byKind      map[Kind]*TypeManager
	defaults    dl.Library
	middleware  *MiddlewareManager
	payload     *PayloadManager
	entitlement *EntitlementManager
	plugin      *PluginManager
}

// Registry is the entry point for loading, looking up and unloading bridge
// libraries of every kind.
//
// Kind managers are created on first use. Close drains every kind; a closed
// Registry can be used again and starts empty.
type Registry struct {
	loader      dl.Loader
	static      *static.Loader
	props       *property.Store
	hostVersion string
	host        *semver.Version
	signalCap   int
	slotCap     int
	searchPath  []string

	initMu   sync.Mutex
	managers atomic.Pointer[managerSet]
}

// New creates a registry.
func New(opts ...Option) *Registry {
	r := &Registry{hostVersion: DefaultHostVersion}
	for _, opt := range opts {
		opt(r)
	}
	if r.static == nil {
		r.static = static.New()
	}
	if r.props == nil {
		r.props = property.NewStore()
	}
	if r.loader == nil {
		r.loader = loaders.NewDefault(r.static, r.searchPath)
	}
	if r.signalCap <= 0 {
		r.signalCap = DefaultSignalCapacity
	}
	if r.slotCap <= 0 {
		r.slotCap = DefaultSlotCapacity
	}
	if r.hostVersion != "" {
		v, err := semver.NewVersion(r.hostVersion)
		if err != nil {
			slog.Warn("invalid host version, minimum version checks disabled",
				"version", r.hostVersion, "error", err)
		} else {
			r.host = v
		}
	}
	registerBuiltins(r.static)
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns a process-wide registry built with no options. Prefer
// passing a Registry explicitly.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// Properties returns the property store.
func (r *Registry) Properties() *property.Store { return r.props }

// Static returns the in-process library table.
func (r *Registry) Static() *static.Loader { return r.static }

// HostVersion returns the version bridges are checked against.
func (r *Registry) HostVersion() string { return r.hostVersion }

// set returns the kind managers, creating them on first use.
func (r *Registry) set() (*managerSet, error) {
	if m := r.managers.Load(); m != nil {
		return m, nil
	}
	r.initMu.Lock()
	defer r.initMu.Unlock()
	if m := r.managers.Load(); m != nil {
		return m, nil
	}
	m, err := r.newManagerSet()
	if err != nil {
		return nil, err
	}
	r.managers.Store(m)
	return m, nil
}

func (r *Registry) newManagerSet() (*managerSet, error) {
	defaults, err := r.static.Open(context.Background(), DefaultLibrary, "")
	if err != nil {
		return nil, oops.In("library").Code(bridge.StatusPlatform.Code()).
			Wrapf(err, "open built-in default library")
	}
	m := &managerSet{byKind: make(map[Kind]*TypeManager, len(kinds)), defaults: defaults}
	for _, k := range kinds {
		tm, err := newTypeManager(r, k)
		if err != nil {
			_ = defaults.Close()
			return nil, err
		}
		m.byKind[k] = tm
	}
	m.middleware = newMiddlewareManager(r, m.byKind[KindMiddleware])
	m.payload = newPayloadManager(r, m.byKind[KindPayload])
	m.entitlement = newEntitlementManager(r, m.byKind[KindEntitlement])
	m.plugin = newPluginManager(r, m.byKind[KindPlugin])
	return m, nil
}

// TypeManager returns the manager of a concrete kind.
func (r *Registry) TypeManager(kind Kind) (*TypeManager, error) {
	if !kind.Valid() {
		return nil, oops.In("library").Code(bridge.StatusInvalidArg.Code()).
			With("kind", kind.String()).Errorf("invalid library kind %s", kind)
	}
	m, err := r.set()
	if err != nil {
		return nil, err
	}
	return m.byKind[kind], nil
}

// Middleware returns the middleware manager.
func (r *Registry) Middleware() (*MiddlewareManager, error) {
	m, err := r.set()
	if err != nil {
		return nil, err
	}
	return m.middleware, nil
}

// Payload returns the payload manager.
func (r *Registry) Payload() (*PayloadManager, error) {
	m, err := r.set()
	if err != nil {
		return nil, err
	}
	return m.payload, nil
}

// Entitlement returns the entitlement manager.
func (r *Registry) Entitlement() (*EntitlementManager, error) {
	m, err := r.set()
	if err != nil {
		return nil, err
	}
	return m.entitlement, nil
}

// Plugins returns the plugin manager.
func (r *Registry) Plugins() (*PluginManager, error) {
	m, err := r.set()
	if err != nil {
		return nil, err
	}
	return m.plugin, nil
}

// Load loads the library name of the given kind from path. An empty path
// searches the loader's search path; KindUnknown classifies the library by
// the entry points it exports. Loading an already loaded name returns the
// loaded library.
func (r *Registry) Load(ctx context.Context, name string, kind Kind, path string) (lib *Library, err error) {
	ctx, span := tracer.Start(ctx, "library.load", trace.WithAttributes(
		attribute.String("library.name", name),
		attribute.String("library.kind", kind.String()),
		attribute.String("library.path", path),
	))
	defer func() { endSpan(span, err) }()

	if name == "" {
		return nil, oops.In("library").Code(bridge.StatusNullArg.Code()).Errorf("library name is empty")
	}
	if reservedName(name) {
		return nil, oops.In("library").Code(bridge.StatusInvalidArg.Code()).With("library", name).
			Hint("kind names and \"default\" are property scopes").
			Errorf("library name %q is reserved", name)
	}
	if kind != KindUnknown && !kind.Valid() {
		return nil, oops.In("library").Code(bridge.StatusInvalidArg.Code()).
			With("library", name).With("kind", int(kind)).Errorf("invalid library kind %d", kind)
	}
	m, err := r.set()
	if err != nil {
		return nil, err
	}
	if kind != KindUnknown {
		return m.byKind[kind].load(ctx, name, path, nil)
	}
	return r.classifyAndLoad(ctx, m, name, path)
}

func (r *Registry) classifyAndLoad(ctx context.Context, m *managerSet, name, path string) (*Library, error) {
	for _, k := range kinds {
		if lib, err := m.byKind[k].Get(name); err == nil {
			return lib, nil
		}
	}
	handle, err := r.open(ctx, name, path)
	if err != nil {
		return nil, err
	}
	kind := r.classify(m, name, handle)
	if kind == KindUnknown {
		_ = handle.Close()
		return nil, oops.In("library").Code(bridge.StatusNoBridgeImpl.Code()).
			With("library", name).With("path", path).
			Errorf("library %s does not implement any bridge kind", name)
	}
	slog.Debug("library classified", "library", name, "kind", kind.String())
	return m.byKind[kind].load(ctx, name, path, handle)
}

// classify probes handle with every kind, in dependency order.
func (r *Registry) classify(m *managerSet, name string, handle dl.Library) Kind {
	for _, k := range kinds {
		if m.byKind[k].probe(name, handle) {
			return k
		}
	}
	return KindUnknown
}

// Classify opens the library to report its kind without loading it.
func (r *Registry) Classify(ctx context.Context, name, path string) (Kind, error) {
	m, err := r.set()
	if err != nil {
		return KindUnknown, err
	}
	handle, err := r.open(ctx, name, path)
	if err != nil {
		return KindUnknown, err
	}
	defer func() { _ = handle.Close() }()
	return r.classify(m, name, handle), nil
}

// open resolves name with the in-process table first when no path is given.
func (r *Registry) open(ctx context.Context, name, path string) (dl.Library, error) {
	if path == "" && r.static.Has(name) {
		return r.static.Open(ctx, name, "")
	}
	lib, err := r.loader.Open(ctx, name, path)
	if err != nil {
		if _, ok := oops.AsOops(err); ok {
			return nil, err
		}
		return nil, oops.In("library").Code(bridge.StatusPlatform.Code()).
			With("library", name).With("path", path).Wrap(err)
	}
	return lib, nil
}

// Unload unloads a library. Middleware bridges still open are force-closed.
func (r *Registry) Unload(ctx context.Context, name string, kind Kind) (err error) {
	ctx, span := tracer.Start(ctx, "library.unload", trace.WithAttributes(
		attribute.String("library.name", name),
		attribute.String("library.kind", kind.String()),
	))
	defer func() { endSpan(span, err) }()

	if name == "" {
		return oops.In("library").Code(bridge.StatusNullArg.Code()).Errorf("library name is empty")
	}
	tm, err := r.TypeManager(kind)
	if err != nil {
		return err
	}
	return tm.unload(ctx, name)
}

// Get returns a loaded library.
func (r *Registry) Get(name string, kind Kind) (*Library, error) {
	if name == "" {
		return nil, oops.In("library").Code(bridge.StatusNullArg.Code()).Errorf("library name is empty")
	}
	tm, err := r.TypeManager(kind)
	if err != nil {
		return nil, err
	}
	return tm.Get(name)
}

// List returns the loaded libraries of a kind accepted by pred, sorted by
// name. KindUnknown lists every kind.
func (r *Registry) List(kind Kind, pred func(*Library) bool) ([]*Library, error) {
	if kind == KindUnknown {
		var all []*Library
		for _, k := range kinds {
			libs, err := r.List(k, pred)
			if err != nil {
				return nil, err
			}
			all = append(all, libs...)
		}
		return all, nil
	}
	tm, err := r.TypeManager(kind)
	if err != nil {
		return nil, err
	}
	return tm.List(pred), nil
}

// ForEach calls fn for each loaded library of a kind until fn returns false.
func (r *Registry) ForEach(kind Kind, fn func(*Library) bool) error {
	tm, err := r.TypeManager(kind)
	if err != nil {
		return err
	}
	tm.ForEach(fn)
	return nil
}

// Close unloads every library, plugins first and payloads last, and clears
// all signals.
func (r *Registry) Close(ctx context.Context) error {
	r.initMu.Lock()
	defer r.initMu.Unlock()
	m := r.managers.Load()
	if m == nil {
		return nil
	}
	var errs []error
	for _, k := range teardownOrder {
		if err := m.byKind[k].drain(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.defaults.Close(); err != nil {
		errs = append(errs, err)
	}
	r.managers.Store(nil)
	if len(errs) > 0 {
		return oops.In("library").Wrap(errors.Join(errs...))
	}
	return nil
}

// Property resolves a generic property of lib through the hierarchy
// name, kind, default; see TypeManager.Property.
func (r *Registry) Property(lib *Library, prop string) (string, error) {
	if lib == nil {
		return "", oops.In("library").Code(bridge.StatusNullArg.Code()).Errorf("library is nil")
	}
	tm, err := r.TypeManager(lib.kind)
	if err != nil {
		return "", err
	}
	return tm.Property(lib, prop), nil
}

// Description is the collected descriptive properties of a library.
type Description struct {
	Name        string `json:"name" yaml:"name"`
	Kind        string `json:"kind" yaml:"kind"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	InstanceID  string `json:"instance_id" yaml:"instance_id"`
	Description string `json:"description" yaml:"description"`
	Author      string `json:"author" yaml:"author"`
	URI         string `json:"uri" yaml:"uri"`
	License     string `json:"license" yaml:"license"`
	Version     string `json:"version" yaml:"version"`
	MamaVersion string `json:"mama_version,omitempty" yaml:"mama_version,omitempty"`
	BridgeName  string `json:"bridge_name" yaml:"bridge_name"`
	BridgeVer   string `json:"bridge_version" yaml:"bridge_version"`
}

// Describe collects the descriptive properties of lib.
func (r *Registry) Describe(lib *Library) (Description, error) {
	if lib == nil {
		return Description{}, oops.In("library").Code(bridge.StatusNullArg.Code()).Errorf("library is nil")
	}
	tm, err := r.TypeManager(lib.kind)
	if err != nil {
		return Description{}, err
	}
	p := func(name string) string { return tm.Property(lib, name) }
	return Description{
		Name:        p(property.Name),
		Kind:        lib.kind.String(),
		Path:        lib.path,
		InstanceID:  lib.instanceID.String(),
		Description: p(property.Description),
		Author:      p(property.Author),
		URI:         p(property.URI),
		License:     p(property.License),
		Version:     p(property.Version),
		MamaVersion: p(property.MamaVersion),
		BridgeName:  p(property.BridgePrefix + property.Name),
		BridgeVer:   p(property.BridgePrefix + property.Version),
	}, nil
}

// binder creates a binder for lib with the registry's version settings.
func (r *Registry) binder(ctx context.Context, lib *Library) *Binder {
	var defaults dl.Library
	if m := r.managers.Load(); m != nil {
		defaults = m.defaults
	}
	b := newBinder(ctx, lib.name, lib.handle, defaults)
	b.host = r.host
	if v, ok := r.props.Library(lib.name, lib.kind.String(), property.MamaVersion); ok {
		b.minVersion = v
	}
	return b
}
