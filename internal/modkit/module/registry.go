package module

import "sync"

// process-wide port registry, filled at bootstrap so binaries can look up
// another module's ports without holding the module value itself
var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register stores the port bundle for a module name, the latest wins
func Register(name string, ports any) {
	mu.Lock()
	reg[name] = ports
	mu.Unlock()
}

// PortsAs looks up the bundle registered under name and asserts it to T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	v, ok := reg[name]
	mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

// Reset drops every registration, tests use this between cases
func Reset() {
	mu.Lock()
	reg = map[string]any{}
	mu.Unlock()
}
