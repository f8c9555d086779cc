package periph

import (
	"encoding/base64"
	"errors"
	"testing"

	"tinygo.org/x/drivers"

	"periphhal/drivers/rng"
	"periphhal/drivers/uartex"
	"periphhal/errcode"
	"periphhal/internal/sim"
	"periphhal/regs"
	"periphhal/x/timex"
)

func TestRegistry_DefaultBuilders(t *testing.T) {
	for _, typ := range []string{"rng", "uart_fifo"} {
		if _, ok := Lookup(typ); !ok {
			t.Fatalf("builder %q not registered", typ)
		}
	}
	if _, ok := Lookup("nope"); ok {
		t.Fatal("unexpected builder for unknown type")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterBuilder("rng", rngBuilder{})
}

func newService(t *testing.T, buses BusMap) *Service {
	t.Helper()
	s := New(buses, timex.NewManual(0, 1))
	t.Cleanup(s.Close)
	return s
}

func TestService_RNGGenerateAndLast(t *testing.T) {
	dev := sim.NewRNG(sim.Counter(0x100, 1), 0, 0)
	s := newService(t, BusMap{"rng0": dev})
	n := s.Apply(Config{Devices: []Device{{ID: "r", Type: "rng", Bus: "rng0", Params: map[string]any{"divider": 2}}}})
	if n != 1 {
		t.Fatalf("built %d devices, want 1", n)
	}

	rep := s.Control("r", KindRNG, "generate", nil)
	if !rep.OK {
		t.Fatalf("generate failed: %+v", rep)
	}
	if v := rep.Result.(map[string]any)["value"].(uint32); v != 0x100 {
		t.Fatalf("value %#x want 0x100", v)
	}
	rep = s.Control("r", KindRNG, "last", nil)
	if v := rep.Result.(map[string]any)["value"].(uint32); v != 0x100 {
		t.Fatalf("last %#x want 0x100", v)
	}
	caps := s.Capabilities()["r"]
	if len(caps) != 1 || caps[0].Info["divider"] != 2 {
		t.Fatalf("caps %+v", caps)
	}
}

func TestService_RNGRead(t *testing.T) {
	dev := sim.NewRNG(sim.Counter(0x04030201, 0x04040404), 0, 0)
	s := newService(t, BusMap{"rng0": dev})
	s.Apply(Config{Devices: []Device{{ID: "r", Type: "rng", Bus: "rng0"}}})

	rep := s.Control("r", KindRNG, "read", map[string]any{"n": 6})
	if !rep.OK {
		t.Fatalf("read failed: %+v", rep)
	}
	b, err := base64.StdEncoding.DecodeString(rep.Result.(map[string]any)["data_b64"].(string))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6}
	if string(b) != string(want) {
		t.Fatalf("got % x want % x", b, want)
	}
	if dev.Samples() != 2 {
		t.Fatalf("samples %d want 2", dev.Samples())
	}
}

func TestService_RNGTimeoutThenState(t *testing.T) {
	dev := sim.NewRNG(sim.Counter(1, 1), 0, -1)
	s := newService(t, BusMap{"rng0": dev})
	s.Apply(Config{Devices: []Device{{ID: "r", Type: "rng", Bus: "rng0"}}})

	rep := s.Control("r", KindRNG, "generate", nil)
	if rep.OK || rep.Error != string(errcode.Timeout) {
		t.Fatalf("want timeout, got %+v", rep)
	}
	rep = s.Control("r", KindRNG, "state", nil)
	res := rep.Result.(map[string]any)
	if res["state"] != "ready" || res["error"] != "timeout" {
		t.Fatalf("state %+v", res)
	}

	// Re-init clears the sticky flag.
	dev.SetLatency(0)
	if rep := s.Control("r", KindRNG, "init", nil); !rep.OK {
		t.Fatalf("init failed: %+v", rep)
	}
	res = s.Control("r", KindRNG, "state", nil).Result.(map[string]any)
	if res["error"] != "none" {
		t.Fatalf("error flags after init: %v", res["error"])
	}
}

func TestService_RNGDeinitThenGenerate(t *testing.T) {
	dev := sim.NewRNG(sim.Counter(1, 1), 0, 0)
	s := newService(t, BusMap{"rng0": dev})
	s.Apply(Config{Devices: []Device{{ID: "r", Type: "rng", Bus: "rng0"}}})

	if rep := s.Control("r", KindRNG, "deinit", nil); !rep.OK {
		t.Fatalf("deinit: %+v", rep)
	}
	rep := s.Control("r", KindRNG, "generate", nil)
	if rep.Error != string(errcode.NotReady) {
		t.Fatalf("want not_ready, got %+v", rep)
	}
	if rep := s.Control("r", KindRNG, "init", map[string]any{"divider": 9}); rep.Error != string(errcode.InvalidParams) {
		t.Fatalf("want invalid_params, got %+v", rep)
	}
}

func TestService_UARTThresholdAndInfo(t *testing.T) {
	dev := sim.NewUART()
	s := newService(t, BusMap{"uart1": dev})
	s.Apply(Config{Devices: []Device{{
		ID: "u", Type: "uart_fifo", Bus: "uart1",
		Params: map[string]any{"fifo": true, "rx_threshold": "1/2"},
	}}})

	if rep := s.Control("u", KindUART, "set_fifo_threshold", map[string]any{"dir": "tx", "threshold": "3/4"}); !rep.OK {
		t.Fatalf("set threshold: %+v", rep)
	}
	info := s.Control("u", KindUART, "info", nil).Result.(map[string]any)
	if info["tx_threshold"] != "3/4" || info["rx_threshold"] != "1/2" {
		t.Fatalf("thresholds %+v", info)
	}
	if info["nb_tx"] != uint16(6) || info["nb_rx"] != uint16(4) {
		t.Fatalf("nb %v/%v want 6/4", info["nb_tx"], info["nb_rx"])
	}
	if info["state"] != "ready" {
		t.Fatalf("state %v", info["state"])
	}

	rep := s.Control("u", KindUART, "set_fifo_threshold", map[string]any{"dir": "rx", "threshold": "5/8"})
	if rep.Error != string(errcode.InvalidParams) {
		t.Fatalf("want invalid_params, got %+v", rep)
	}
}

func TestService_UARTFormatMaskAndReceive(t *testing.T) {
	dev := sim.NewUART()
	s := newService(t, BusMap{"uart1": dev})
	s.Apply(Config{Devices: []Device{{ID: "u", Type: "uart_fifo", Bus: "uart1"}}})

	rep := s.Control("u", KindUART, "set_format", map[string]any{"wordlen": 8, "parity": "even"})
	if !rep.OK || rep.Result.(map[string]any)["mask"] != uint16(0x7F) {
		t.Fatalf("set_format: %+v", rep)
	}

	dev.Feed(0xC1, 0xC2)
	rep = s.Control("u", KindUART, "receive", map[string]any{"max": 8})
	if !rep.OK {
		t.Fatalf("receive: %+v", rep)
	}
	res := rep.Result.(map[string]any)
	b, _ := base64.StdEncoding.DecodeString(res["data_b64"].(string))
	if res["n"] != 2 || string(b) != "AB" {
		t.Fatalf("received %v %q", res["n"], b)
	}
}

func TestService_Replies(t *testing.T) {
	dev := sim.NewUART()
	s := newService(t, BusMap{"uart1": dev})
	s.Apply(Config{Devices: []Device{{ID: "u", Type: "uart_fifo", Bus: "uart1"}}})

	if rep := s.Control("missing", KindUART, "info", nil); rep.Error != string(errcode.UnknownDevice) {
		t.Fatalf("want unknown_device, got %+v", rep)
	}
	if rep := s.Control("u", KindRNG, "generate", nil); rep.Error != string(errcode.Unsupported) {
		t.Fatalf("want unsupported kind, got %+v", rep)
	}
	if rep := s.Control("u", KindUART, "reboot", nil); rep.Error != string(errcode.Unsupported) {
		t.Fatalf("want unsupported method, got %+v", rep)
	}
}

func TestService_ApplySkipsBadEntries(t *testing.T) {
	s := newService(t, BusMap{"uart1": sim.NewUART()})
	n := s.Apply(Config{Devices: []Device{
		{ID: "a", Type: "nope", Bus: "uart1"},
		{ID: "b", Type: "uart_fifo", Bus: "missing"},
		{ID: "c", Type: "uart_fifo", Bus: "uart1", Params: map[string]any{"parity": "mark"}},
		{ID: "d", Type: "uart_fifo", Bus: "uart1"},
	}})
	if n != 1 {
		t.Fatalf("built %d want 1", n)
	}
	if _, ok := s.Capabilities()["d"]; !ok {
		t.Fatal("device d missing")
	}
}

func TestService_ApplyJSON(t *testing.T) {
	s := newService(t, BusMap{"rng0": sim.NewRNG(sim.Counter(7, 1), 0, 0)})
	n, err := s.ApplyJSON(`{"devices":[{"id":"r","type":"rng","bus":"rng0","params":{"divider":3}}]}`)
	if err != nil || n != 1 {
		t.Fatalf("apply: n=%d err=%v", n, err)
	}
	if _, err := s.ApplyJSON(`{"devices":`); errcode.Of(err) != errcode.InvalidPayload {
		t.Fatalf("want invalid_payload, got %v", err)
	}
}

func TestService_ReapplyReplacesAndCloses(t *testing.T) {
	dev := sim.NewRNG(sim.Counter(1, 1), 0, 0)
	s := newService(t, BusMap{"rng0": dev})
	cfg := Config{Devices: []Device{{ID: "r", Type: "rng", Bus: "rng0"}}}
	s.Apply(cfg)
	s.Apply(cfg)
	if len(s.Capabilities()) != 1 {
		t.Fatalf("devices %d want 1", len(s.Capabilities()))
	}
	s.Close()
	if dev.Peek(rng.OffsetCR)&rng.CRDisable == 0 {
		t.Fatal("close left the peripheral enabled")
	}
	if len(s.Capabilities()) != 0 {
		t.Fatal("close kept devices")
	}
}

var _ drivers.I2C = (*brokenBridge)(nil)

type brokenBridge struct{ calls int }

func (b *brokenBridge) Tx(uint16, []byte, []byte) error {
	b.calls++
	return errors.New("nack")
}

func TestBuild_SurfacesBusError(t *testing.T) {
	br := &brokenBridge{}
	_, err := rngBuilder{}.Build(BuildInput{
		DeviceID: "r",
		Type:     "rng",
		Bus:      regs.NewI2CBus(br, 0x2A),
		Clock:    timex.NewManual(0, 1),
	})
	if errcode.Of(err) != errcode.Error {
		t.Fatalf("want error code, got %v", err)
	}
	if br.calls == 0 {
		t.Fatal("bridge never used")
	}
}

func TestBuild_RejectsBadParams(t *testing.T) {
	bus := regs.NewFile()
	if _, err := (rngBuilder{}).Build(BuildInput{Bus: bus, Params: map[string]any{"divider": 4}}); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("rng divider: %v", err)
	}
	if _, err := (uartBuilder{}).Build(BuildInput{Bus: bus, Params: map[string]any{"wordlen": 6}}); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("uart wordlen: %v", err)
	}
	if _, err := (uartBuilder{}).Build(BuildInput{Params: nil}); !errors.Is(err, errcode.InvalidHandle) {
		t.Fatalf("nil bus: %v", err)
	}
	if _, err := (uartBuilder{}).Build(BuildInput{Bus: bus, Params: "{"}); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("bad json: %v", err)
	}
}

func TestUARTParamsConfig(t *testing.T) {
	cfg, err := UARTParams{WordLength: 9, Parity: "odd", AddressBits: 7, TxThreshold: "7/8"}.config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.WordLength != uartex.WordLength9 || cfg.Parity != uartex.ParityOdd ||
		cfg.AddressLength != uartex.Address7Bit || cfg.TxThreshold != uartex.Threshold7_8 {
		t.Fatalf("cfg %+v", cfg)
	}
}
