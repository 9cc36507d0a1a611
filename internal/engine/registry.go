package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultModulePrefix is where research region types live unless a stage
// names its module explicitly.
const DefaultModulePrefix = "htmresearch.regions."

var (
	ErrRegionTypeExists   = errors.New("region type already registered")
	ErrRegionTypeNotFound = errors.New("region type not registered")
	ErrModuleExists       = errors.New("module already provided")
	ErrModuleNotFound     = errors.New("module not found")
	ErrModuleTypeMismatch = errors.New("module does not define region type")
	ErrInvalidRegionType  = errors.New("invalid region type identifier")
)

// Factory builds a region from parameters that have already been checked
// against the type's spec and completed with defaults.
type Factory func(params map[string]any) (Region, error)

type RegionTypeSpec struct {
	Name    string
	Spec    RegionSpec
	Factory Factory
}

type registeredRegionType struct {
	spec    RegionTypeSpec
	builtin bool
	module  string
}

var regionRegistry = struct {
	mu sync.RWMutex
	m  map[string]registeredRegionType
}{
	m: make(map[string]registeredRegionType),
}

// moduleCatalog holds region types that can be loaded by module path but
// are not known to networks until RegisterRegion is called.
var moduleCatalog = struct {
	mu sync.RWMutex
	m  map[string]RegionTypeSpec
}{
	m: make(map[string]RegionTypeSpec),
}

func validateTypeSpec(spec RegionTypeSpec) error {
	if spec.Name == "" {
		return errors.New("region type name is required")
	}
	if strings.Contains(spec.Name, ".") {
		return fmt.Errorf("%w: type name %q must not contain '.'", ErrInvalidRegionType, spec.Name)
	}
	if spec.Factory == nil {
		return errors.New("region factory is required")
	}
	return nil
}

// RegisterBuiltinWithSpec adds a type to the registry every network sees
// without a module lookup.
func RegisterBuiltinWithSpec(spec RegionTypeSpec) error {
	if err := validateTypeSpec(spec); err != nil {
		return err
	}

	regionRegistry.mu.Lock()
	defer regionRegistry.mu.Unlock()

	if _, exists := regionRegistry.m[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrRegionTypeExists, spec.Name)
	}
	regionRegistry.m[spec.Name] = registeredRegionType{spec: spec, builtin: true}
	return nil
}

func MustRegisterBuiltin(spec RegionTypeSpec) {
	if err := RegisterBuiltinWithSpec(spec); err != nil {
		panic(err)
	}
}

// ProvideModule makes a region type loadable from modulePath.
func ProvideModule(modulePath string, spec RegionTypeSpec) error {
	if strings.TrimSpace(modulePath) == "" {
		return errors.New("module path is required")
	}
	if err := validateTypeSpec(spec); err != nil {
		return err
	}

	moduleCatalog.mu.Lock()
	defer moduleCatalog.mu.Unlock()

	if _, exists := moduleCatalog.m[modulePath]; exists {
		return fmt.Errorf("%w: %s", ErrModuleExists, modulePath)
	}
	moduleCatalog.m[modulePath] = spec
	return nil
}

func MustProvideModule(modulePath string, spec RegionTypeSpec) {
	if err := ProvideModule(modulePath, spec); err != nil {
		panic(err)
	}
}

// DefaultModulePath is the module a research type is loaded from when no
// path is given.
func DefaultModulePath(typeName string) string {
	return DefaultModulePrefix + typeName
}

// RegisterRegion loads typeName from modulePath and registers it. An empty
// modulePath means DefaultModulePath(typeName). Registering the same type
// from the same module twice is a no-op.
func RegisterRegion(typeName, modulePath string) error {
	if typeName == "" {
		return errors.New("region type name is required")
	}
	if modulePath == "" {
		modulePath = DefaultModulePath(typeName)
	}

	moduleCatalog.mu.RLock()
	spec, ok := moduleCatalog.m[modulePath]
	moduleCatalog.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, modulePath)
	}
	if spec.Name != typeName {
		return fmt.Errorf("%w: %s has %s, want %s", ErrModuleTypeMismatch, modulePath, spec.Name, typeName)
	}

	regionRegistry.mu.Lock()
	defer regionRegistry.mu.Unlock()

	if existing, exists := regionRegistry.m[typeName]; exists {
		if !existing.builtin && existing.module == modulePath {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrRegionTypeExists, typeName)
	}
	regionRegistry.m[typeName] = registeredRegionType{spec: spec, module: modulePath}
	return nil
}

// UnregisterRegion removes a type loaded through RegisterRegion. Built-in
// types cannot be removed.
func UnregisterRegion(typeName string) error {
	regionRegistry.mu.Lock()
	defer regionRegistry.mu.Unlock()

	entry, ok := regionRegistry.m[typeName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRegionTypeNotFound, typeName)
	}
	if entry.builtin {
		return fmt.Errorf("cannot unregister built-in region type %s", typeName)
	}
	delete(regionRegistry.m, typeName)
	return nil
}

func IsRegistered(typeName string) bool {
	regionRegistry.mu.RLock()
	_, ok := regionRegistry.m[typeName]
	regionRegistry.mu.RUnlock()
	return ok
}

func IsBuiltin(typeName string) bool {
	regionRegistry.mu.RLock()
	entry, ok := regionRegistry.m[typeName]
	regionRegistry.mu.RUnlock()
	return ok && entry.builtin
}

func ResolveRegionType(typeName string) (RegionTypeSpec, error) {
	regionRegistry.mu.RLock()
	entry, ok := regionRegistry.m[typeName]
	regionRegistry.mu.RUnlock()
	if !ok {
		return RegionTypeSpec{}, fmt.Errorf("%w: %s", ErrRegionTypeNotFound, typeName)
	}
	return entry.spec, nil
}

// ModuleSpec returns the spec of the type a module defines without
// registering it.
func ModuleSpec(modulePath string) (RegionTypeSpec, error) {
	moduleCatalog.mu.RLock()
	spec, ok := moduleCatalog.m[modulePath]
	moduleCatalog.mu.RUnlock()
	if !ok {
		return RegionTypeSpec{}, fmt.Errorf("%w: %s", ErrModuleNotFound, modulePath)
	}
	return spec, nil
}

func ListRegionTypes() []string {
	regionRegistry.mu.RLock()
	defer regionRegistry.mu.RUnlock()

	names := make([]string, 0, len(regionRegistry.m))
	for name := range regionRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListModules() []string {
	moduleCatalog.mu.RLock()
	defer moduleCatalog.mu.RUnlock()

	paths := make([]string, 0, len(moduleCatalog.m))
	for path := range moduleCatalog.m {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// ParseRegionType splits "<namespace>.<TypeName>".
func ParseRegionType(identifier string) (namespace, typeName string, err error) {
	namespace, typeName, ok := strings.Cut(identifier, ".")
	if !ok || namespace == "" || typeName == "" || strings.Contains(typeName, ".") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRegionType, identifier)
	}
	return namespace, typeName, nil
}

// snapshotRegistryForTests returns a function that restores both the
// registry and the module catalog to their current contents.
func snapshotRegistryForTests() func() {
	regionRegistry.mu.RLock()
	regions := make(map[string]registeredRegionType, len(regionRegistry.m))
	for k, v := range regionRegistry.m {
		regions[k] = v
	}
	regionRegistry.mu.RUnlock()

	moduleCatalog.mu.RLock()
	modules := make(map[string]RegionTypeSpec, len(moduleCatalog.m))
	for k, v := range moduleCatalog.m {
		modules[k] = v
	}
	moduleCatalog.mu.RUnlock()

	return func() {
		regionRegistry.mu.Lock()
		regionRegistry.m = regions
		regionRegistry.mu.Unlock()
		moduleCatalog.mu.Lock()
		moduleCatalog.m = modules
		moduleCatalog.mu.Unlock()
	}
}
