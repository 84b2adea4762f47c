package exchange

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Factory builds an unconfigured exchange.
type Factory func() Exchange

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an exchange available to New under name (case-insensitive).
// Adapters call it from init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := strings.ToLower(name)
	if _, dup := registry[key]; dup {
		panic("exchange: Register called twice for " + name)
	}
	registry[key] = factory
}

// Names lists registered exchanges in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds the exchange named by spec.Name, fills spec's gaps from the
// exchange defaults and applies it.
func New(spec Specification) (Exchange, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(spec.Name)]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown exchange %q (registered: %s)", spec.Name, strings.Join(Names(), ", "))
	}

	ex := factory()
	merged := spec.Merge(ex.DefaultSpecification())
	if err := ex.ApplySpecification(merged); err != nil {
		return nil, errors.Wrapf(err, "apply %s specification", spec.Name)
	}
	return ex, nil
}
