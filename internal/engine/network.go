package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrRegionExists       = errors.New("region already exists")
	ErrRegionNotFound     = errors.New("region not found")
	ErrPortNotFound       = errors.New("port not found")
	ErrDuplicateLink      = errors.New("link already exists")
	ErrMissingInput       = errors.New("required input is not linked")
	ErrNetworkInitialized = errors.New("network already initialized")
)

// UniformLink is the link type used between every pair of stages.
const UniformLink = "UniformLink"

type Region interface {
	Spec() RegionSpec
	GetParameter(name string) (any, error)
	SetParameter(name string, value any) error
}

// Initializer is implemented by regions that check their own state when
// the network is initialized.
type Initializer interface {
	Initialize() error
}

// OutputWidther is implemented by regions that can report the number of
// elements an output produces.
type OutputWidther interface {
	OutputWidth(output string) (int, error)
}

type Link struct {
	Source     string
	Dest       string
	LinkType   string
	LinkParams string
	SrcOutput  string
	DestInput  string
}

// RegionHandle is a network's named reference to a region.
type RegionHandle struct {
	name     string
	typeName string
	region   Region
}

func (h *RegionHandle) Name() string {
	return h.name
}

// Type is the registered type name without its namespace.
func (h *RegionHandle) Type() string {
	return h.typeName
}

// GetSelf returns the underlying region implementation.
func (h *RegionHandle) GetSelf() Region {
	return h.region
}

func (h *RegionHandle) Spec() RegionSpec {
	return h.region.Spec()
}

func (h *RegionHandle) GetParameter(name string) (any, error) {
	return h.region.GetParameter(name)
}

func (h *RegionHandle) SetParameter(name string, value any) error {
	if _, err := CheckWritable(h.region.Spec(), name); err != nil {
		return fmt.Errorf("region %s: %w", h.name, err)
	}
	if err := h.region.SetParameter(name, value); err != nil {
		return fmt.Errorf("region %s: %w", h.name, err)
	}
	return nil
}

type Network struct {
	mu          sync.RWMutex
	regions     map[string]*RegionHandle
	order       []string
	links       []Link
	initialized bool
}

func NewNetwork() *Network {
	return &Network{regions: make(map[string]*RegionHandle)}
}

// AddRegion creates a region of the registered type named by regionType
// ("<namespace>.<TypeName>") with parameters decoded from paramsJSON.
func (n *Network) AddRegion(name, regionType, paramsJSON string) (*RegionHandle, error) {
	if name == "" {
		return nil, errors.New("region name is required")
	}
	_, typeName, err := ParseRegionType(regionType)
	if err != nil {
		return nil, err
	}
	typeSpec, err := ResolveRegionType(typeName)
	if err != nil {
		return nil, err
	}
	params, err := decodeParams(paramsJSON)
	if err != nil {
		return nil, fmt.Errorf("region %s params: %w", name, err)
	}
	values, err := ApplyDefaults(typeSpec.Spec, params)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", name, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initialized {
		return nil, ErrNetworkInitialized
	}
	if _, exists := n.regions[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRegionExists, name)
	}
	region, err := typeSpec.Factory(values)
	if err != nil {
		return nil, fmt.Errorf("create region %s (%s): %w", name, typeName, err)
	}
	handle := &RegionHandle{name: name, typeName: typeName, region: region}
	n.regions[name] = handle
	n.order = append(n.order, name)
	return handle, nil
}

func (n *Network) Region(name string) (*RegionHandle, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	h, ok := n.regions[name]
	return h, ok
}

// Regions returns handles in the order they were added.
func (n *Network) Regions() []*RegionHandle {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*RegionHandle, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.regions[name])
	}
	return out
}

// Link connects srcOutput of src to destInput of dest. Empty port names
// select the spec's default output or input.
func (n *Network) Link(src, dest, linkType, linkParams, srcOutput, destInput string) error {
	if linkType == "" {
		return errors.New("link type is required")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initialized {
		return ErrNetworkInitialized
	}
	srcHandle, ok := n.regions[src]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRegionNotFound, src)
	}
	destHandle, ok := n.regions[dest]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRegionNotFound, dest)
	}

	srcSpec := srcHandle.region.Spec()
	if srcOutput == "" {
		if srcOutput, ok = srcSpec.DefaultOutput(); !ok {
			return fmt.Errorf("%w: region %s has no default output", ErrPortNotFound, src)
		}
	} else if !srcSpec.HasOutput(srcOutput) {
		return fmt.Errorf("%w: region %s has no output %s", ErrPortNotFound, src, srcOutput)
	}
	destSpec := destHandle.region.Spec()
	if destInput == "" {
		if destInput, ok = destSpec.DefaultInput(); !ok {
			return fmt.Errorf("%w: region %s has no default input", ErrPortNotFound, dest)
		}
	} else if !destSpec.HasInput(destInput) {
		return fmt.Errorf("%w: region %s has no input %s", ErrPortNotFound, dest, destInput)
	}

	link := Link{
		Source:     src,
		Dest:       dest,
		LinkType:   linkType,
		LinkParams: linkParams,
		SrcOutput:  srcOutput,
		DestInput:  destInput,
	}
	for _, existing := range n.links {
		if existing.Source == src && existing.Dest == dest && existing.SrcOutput == srcOutput && existing.DestInput == destInput {
			return fmt.Errorf("%w: %s.%s -> %s.%s", ErrDuplicateLink, src, srcOutput, dest, destInput)
		}
	}
	n.links = append(n.links, link)
	return nil
}

// Links returns the links in the order they were made.
func (n *Network) Links() []Link {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Link(nil), n.links...)
}

// LinksInto returns the links whose destination is the named region.
func (n *Network) LinksInto(dest string) []Link {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []Link
	for _, link := range n.links {
		if link.Dest == dest {
			out = append(out, link)
		}
	}
	return out
}

// Initialize checks that every required input is linked and lets regions
// validate themselves. It runs once; later calls are no-ops.
func (n *Network) Initialize() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initialized {
		return nil
	}
	linked := make(map[string]map[string]bool, len(n.regions))
	for _, link := range n.links {
		if linked[link.Dest] == nil {
			linked[link.Dest] = make(map[string]bool)
		}
		linked[link.Dest][link.DestInput] = true
	}
	for _, name := range n.order {
		handle := n.regions[name]
		for _, input := range handle.region.Spec().RequiredInputs() {
			if !linked[name][input] {
				return fmt.Errorf("%w: %s.%s", ErrMissingInput, name, input)
			}
		}
		if initializer, ok := handle.region.(Initializer); ok {
			if err := initializer.Initialize(); err != nil {
				return fmt.Errorf("initialize region %s: %w", name, err)
			}
		}
	}
	n.initialized = true
	return nil
}

func (n *Network) Initialized() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.initialized
}

func decodeParams(paramsJSON string) (map[string]any, error) {
	if strings.TrimSpace(paramsJSON) == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}
