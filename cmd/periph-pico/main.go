//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"periphhal/drivers/uartex"
	"periphhal/regs"
	"periphhal/services/periph"
)

// Register bridge addresses on I2C0.
const (
	addrRNG   = 0x2A
	addrUART1 = 0x2B
)

const devices = `{
  "devices": [
    {"id": "rng0", "type": "rng", "bus": "rng", "params": {"divider": 2, "timeout_ticks": 5}}
  ]
}`

func main() {
	time.Sleep(2 * time.Second)
	println("[pico] boot …")

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz}); err != nil {
		println("[pico] FAIL: i2c configure:", err.Error())
		return
	}
	rngBus := regs.NewI2CBus(i2c, addrRNG)
	uartBus := regs.NewI2CBus(i2c, addrUART1)

	svc := periph.New(periph.BusMap{"rng": rngBus}, nil)
	n, err := svc.ApplyJSON(devices)
	if err != nil {
		println("[pico] FAIL: config:", err.Error())
		return
	}
	println("[pico] devices up:", n)

	// The bridged UART and the local rp2 UART share one frame format.
	remote := uartex.New(uartBus, nil)
	cfg := uartex.DefaultConfig()
	cfg.Parity = uartex.ParityEven
	cfg.FIFOMode = true
	cfg.RxThreshold = uartex.Threshold1_2
	if err := remote.Configure(cfg); err != nil {
		println("[pico] uart bridge config:", err.Error())
		return
	}
	if err := uartBus.Err(); err != nil {
		println("[pico] uart bridge:", err.Error())
		return
	}
	if err := uartx.UART1.Configure(uartx.UARTConfig{BaudRate: 115200}); err != nil {
		println("[pico] uart1 configure:", err.Error())
	}
	if err := remote.ApplyFormat(uartx.UART1, 1); err != nil {
		println("[pico] uart1 format:", err.Error())
	}
	_, nbRx := remote.NbDataToProcess()

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for range tick.C {
		r := svc.Control("rng0", periph.KindRNG, "generate", nil)
		if r.OK {
			println("[pico] rng:", r.Result.(map[string]any)["value"].(uint32))
		} else {
			println("[pico] rng err:", r.Error)
		}
		if b := uartex.PortBuffered(uartx.UART1); b >= int(nbRx) {
			println("[pico] uart1 rx pending:", b)
		}
	}
}
