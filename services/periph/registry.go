// services/periph/registry.go
package periph

import (
	"fmt"
	"sync"

	"periphhal/regs"
	"periphhal/x/timex"
)

// BuildInput is passed to a device builder.
type BuildInput struct {
	DeviceID string
	Type     string
	Params   any // JSON bytes, string or decoded map
	Bus      regs.Bus
	Clock    timex.Clock
}

// Builder creates an adaptor from config and resources.
type Builder interface {
	Build(in BuildInput) (Adaptor, error)
}

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

func RegisterBuilder(deviceType string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := builders[deviceType]; exists {
		panic(fmt.Sprintf("device builder already registered for type %q", deviceType))
	}
	builders[deviceType] = b
}

func Lookup(deviceType string) (Builder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := builders[deviceType]
	return b, ok
}
