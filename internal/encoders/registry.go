package encoders

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

const (
	ScalarEncoderKind   = "ScalarEncoder"
	CategoryEncoderKind = "CategoryEncoder"
	DateEncoderKind     = "DateEncoder"
)

var (
	ErrKindExists   = errors.New("encoder kind already registered")
	ErrKindNotFound = errors.New("encoder kind not found")
)

// Factory builds an encoder from its decoded spec.
type Factory func(spec model.EncoderSpec) (Encoder, error)

var kindRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	initializeBuiltInKinds()
}

func initializeBuiltInKinds() {
	MustRegisterKind(ScalarEncoderKind, func(spec model.EncoderSpec) (Encoder, error) {
		encoder, err := NewScalarEncoder(spec)
		if err != nil {
			return nil, err
		}
		return encoder, nil
	})
	MustRegisterKind(CategoryEncoderKind, func(spec model.EncoderSpec) (Encoder, error) {
		encoder, err := NewCategoryEncoder(spec)
		if err != nil {
			return nil, err
		}
		return encoder, nil
	})
	MustRegisterKind(DateEncoderKind, func(spec model.EncoderSpec) (Encoder, error) {
		encoder, err := NewDateEncoder(spec)
		if err != nil {
			return nil, err
		}
		return encoder, nil
	})
}

func RegisterKind(kind string, factory Factory) error {
	if kind == "" {
		return errors.New("encoder kind is required")
	}
	if factory == nil {
		return errors.New("encoder factory is required")
	}

	kindRegistry.mu.Lock()
	defer kindRegistry.mu.Unlock()

	if _, exists := kindRegistry.m[kind]; exists {
		return fmt.Errorf("%w: %s", ErrKindExists, kind)
	}
	kindRegistry.m[kind] = factory
	return nil
}

func MustRegisterKind(kind string, factory Factory) {
	if err := RegisterKind(kind, factory); err != nil {
		panic(err)
	}
}

func ResolveKind(kind string) (Factory, error) {
	kindRegistry.mu.RLock()
	factory, ok := kindRegistry.m[kind]
	kindRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKindNotFound, kind)
	}
	return factory, nil
}

func ListKinds() []string {
	kindRegistry.mu.RLock()
	defer kindRegistry.mu.RUnlock()

	kinds := make([]string, 0, len(kindRegistry.m))
	for kind := range kindRegistry.m {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func resetKindRegistryForTests() {
	kindRegistry.mu.Lock()
	kindRegistry.m = make(map[string]Factory)
	kindRegistry.mu.Unlock()
	initializeBuiltInKinds()
}
