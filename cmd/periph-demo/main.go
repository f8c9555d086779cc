package main

import (
	"encoding/json"

	"periphhal/internal/sim"
	"periphhal/services/periph"
	"periphhal/x/timex"
)

const devices = `{
  "devices": [
    {"id": "rng0", "type": "rng", "bus": "rng", "params": {"divider": 1, "timeout_ticks": 4}},
    {"id": "uart1", "type": "uart_fifo", "bus": "uart1",
     "params": {"wordlen": 8, "parity": "even", "fifo": true, "rx_threshold": "1/2"}}
  ]
}`

func main() {
	println("[demo] boot …")

	rngDev := sim.NewRNG(sim.Counter(0x1234_5678, 0x9E37_79B9), 3, 2)
	uartDev := sim.NewUART()
	svc := periph.New(periph.BusMap{"rng": rngDev, "uart1": uartDev}, timex.NewManual(0, 1))
	defer svc.Close()

	n, err := svc.ApplyJSON(devices)
	if err != nil {
		println("[demo] FAIL: config:", err.Error())
		return
	}
	println("[demo] devices up:", n)

	for i := 0; i < 3; i++ {
		show("generate", svc.Control("rng0", periph.KindRNG, "generate", nil))
	}
	show("read", svc.Control("rng0", periph.KindRNG, "read", map[string]any{"n": 10}))

	rngDev.SetLatency(-1)
	show("generate (stalled)", svc.Control("rng0", periph.KindRNG, "generate", nil))
	show("state", svc.Control("rng0", periph.KindRNG, "state", nil))
	rngDev.SetLatency(2)
	show("init", svc.Control("rng0", periph.KindRNG, "init", nil))

	show("info", svc.Control("uart1", periph.KindUART, "info", nil))
	show("set_fifo_threshold", svc.Control("uart1", periph.KindUART, "set_fifo_threshold",
		map[string]any{"dir": "tx", "threshold": "7/8"}))
	show("info", svc.Control("uart1", periph.KindUART, "info", nil))

	// Top bit of each word is the parity bit and is masked off.
	uartDev.FeedBytes([]byte{0xE8, 0x69})
	show("receive", svc.Control("uart1", periph.KindUART, "receive", map[string]any{"max": 16}))

	println("[demo] done")
}

func show(op string, r periph.Reply) {
	b, err := json.Marshal(r)
	if err != nil {
		println("[demo]", op, "marshal:", err.Error())
		return
	}
	println("[demo]", op, "→", string(b))
}
