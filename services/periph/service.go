// services/periph/service.go
package periph

import (
	"sync"

	"periphhal/errcode"
	"periphhal/regs"
	"periphhal/services/periph/internal/util"
	"periphhal/x/timex"
)

// Config lists the peripherals to bring up.
type Config struct {
	Devices []Device `json:"devices"`
}

// Device describes one peripheral instance.
type Device struct {
	ID     string `json:"id"`
	Type   string `json:"type"`             // "rng" | "uart_fifo"
	Bus    string `json:"bus"`              // register window id, resolved by Resources
	Params any    `json:"params,omitempty"` // builder specific
}

// Resources resolves named register windows set up by the platform layer.
type Resources interface {
	Bus(id string) (regs.Bus, bool)
}

// BusMap is a static Resources.
type BusMap map[string]regs.Bus

func (m BusMap) Bus(id string) (regs.Bus, bool) {
	b, ok := m[id]
	return b, ok
}

// Reply is the uniform control result.
type Reply struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// Service owns the adaptors built from Config.
type Service struct {
	res   Resources
	clock timex.Clock

	mu   sync.Mutex
	devs map[string]Adaptor
}

// New returns an empty service. A nil clock selects a millisecond clock
// shared by every device.
func New(res Resources, clock timex.Clock) *Service {
	if clock == nil {
		clock = timex.NewMillis()
	}
	return &Service{res: res, clock: clock, devs: make(map[string]Adaptor)}
}

// ApplyJSON decodes a Config from JSON (or a decoded map) and applies it.
func (s *Service) ApplyJSON(src any) (int, error) {
	var cfg Config
	if err := util.DecodeJSON(src, &cfg); err != nil {
		return 0, &errcode.E{C: errcode.InvalidPayload, Op: "periph.apply", Err: err}
	}
	return s.Apply(cfg), nil
}

// Apply builds every device in cfg, replacing any device with the same id.
// Failures are logged and skipped. It returns the number of devices built.
func (s *Service) Apply(cfg Config) int {
	built := 0
	for _, dc := range cfg.Devices {
		b, ok := Lookup(dc.Type)
		if !ok {
			println("[periph] no builder for type:", dc.Type, "id:", dc.ID)
			continue
		}
		bus, ok := s.res.Bus(dc.Bus)
		if !ok {
			println("[periph] unknown bus:", dc.Bus, "id:", dc.ID)
			continue
		}

		s.mu.Lock()
		if old, ok := s.devs[dc.ID]; ok {
			_ = old.Close()
			delete(s.devs, dc.ID)
		}
		s.mu.Unlock()

		a, err := b.Build(BuildInput{
			DeviceID: dc.ID,
			Type:     dc.Type,
			Params:   dc.Params,
			Bus:      bus,
			Clock:    s.clock,
		})
		if err != nil {
			println("[periph] build failed for:", dc.ID, "err:", err.Error())
			continue
		}

		s.mu.Lock()
		s.devs[dc.ID] = a
		s.mu.Unlock()
		built++
	}
	return built
}

// Control dispatches a method to a device and wraps the outcome.
func (s *Service) Control(devID, kind, method string, payload any) Reply {
	s.mu.Lock()
	a, ok := s.devs[devID]
	s.mu.Unlock()
	if !ok {
		return Reply{OK: false, Error: string(errcode.UnknownDevice)}
	}
	out, err := a.Control(kind, method, payload)
	if err != nil {
		return Reply{OK: false, Error: string(errcode.Of(err))}
	}
	return Reply{OK: true, Result: out}
}

// Capabilities lists each device's capability documents.
func (s *Service) Capabilities() map[string][]CapInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]CapInfo, len(s.devs))
	for id, a := range s.devs {
		out[id] = a.Capabilities()
	}
	return out
}

// Close de-initialises every device.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.devs {
		if err := a.Close(); err != nil {
			println("[periph] close failed for:", id, "err:", err.Error())
		}
		delete(s.devs, id)
	}
}
