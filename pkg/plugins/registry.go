package plugins

import (
	"fmt"
	"sort"
	"sync"

	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

// Factory creates a compiled-in plugin
type Factory func() pluginapi.Plugin

var (
	// factories is the package-level registry map, keyed by main type
	factories = make(map[string]Factory)
	// mu protects concurrent access to factories map
	mu sync.RWMutex
)

// RegisterFactory makes a compiled-in plugin loadable by its main type name
func RegisterFactory(mainClass string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil factory")
	}
	if _, _, err := SplitMainClass(mainClass); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[mainClass]; exists {
		return fmt.Errorf("factory already registered: %s", mainClass)
	}

	factories[mainClass] = factory
	return nil
}

// UnregisterFactory removes a factory from the registry
func UnregisterFactory(mainClass string) error {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[mainClass]; !exists {
		return fmt.Errorf("factory not found: %s", mainClass)
	}

	delete(factories, mainClass)
	return nil
}

// LookupFactory retrieves a factory by main type
func LookupFactory(mainClass string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, exists := factories[mainClass]
	if !exists {
		return nil, fmt.Errorf("factory not found: %s", mainClass)
	}

	return factory, nil
}

// HasFactory checks if a factory is registered
func HasFactory(mainClass string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, exists := factories[mainClass]
	return exists
}

// ListFactories returns the registered main types, sorted
func ListFactories() []string {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]string, 0, len(factories))
	for name := range factories {
		result = append(result, name)
	}
	sort.Strings(result)

	return result
}

// ClearFactories removes all factories from the registry
func ClearFactories() {
	mu.Lock()
	defer mu.Unlock()

	factories = make(map[string]Factory)
}
