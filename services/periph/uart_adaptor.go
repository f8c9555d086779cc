// services/periph/uart_adaptor.go
package periph

import (
	"context"
	"encoding/base64"

	"periphhal/drivers/uartex"
	"periphhal/errcode"
	"periphhal/regs"
	"periphhal/services/periph/internal/util"
	"periphhal/x/mathx"
)

func init() { RegisterBuilder("uart_fifo", uartBuilder{}) }

type UARTParams struct {
	WordLength  int    `json:"wordlen,omitempty"`      // 7|8|9, default 8
	Parity      string `json:"parity,omitempty"`       // "none"|"even"|"odd"
	AddressBits int    `json:"address_bits,omitempty"` // 4|7, default 4
	FIFO        bool   `json:"fifo,omitempty"`
	TxThreshold string `json:"tx_threshold,omitempty"` // "1/8".."8/8", default 1/8
	RxThreshold string `json:"rx_threshold,omitempty"`
}

func (p UARTParams) config() (uartex.Config, error) {
	cfg := uartex.DefaultConfig()
	if p.WordLength != 0 {
		cfg.WordLength = uartex.WordLength(p.WordLength)
	}
	par, ok := parseParity(p.Parity)
	if !ok {
		return cfg, errcode.InvalidParams
	}
	cfg.Parity = par
	switch p.AddressBits {
	case 0, 4:
		cfg.AddressLength = uartex.Address4Bit
	case 7:
		cfg.AddressLength = uartex.Address7Bit
	default:
		return cfg, errcode.InvalidParams
	}
	cfg.FIFOMode = p.FIFO
	if p.TxThreshold != "" {
		if cfg.TxThreshold, ok = uartex.ParseThreshold(p.TxThreshold); !ok {
			return cfg, errcode.InvalidParams
		}
	}
	if p.RxThreshold != "" {
		if cfg.RxThreshold, ok = uartex.ParseThreshold(p.RxThreshold); !ok {
			return cfg, errcode.InvalidParams
		}
	}
	return cfg, cfg.Validate()
}

func parseParity(s string) (uartex.Parity, bool) {
	switch s {
	case "", "none":
		return uartex.ParityNone, true
	case "even":
		return uartex.ParityEven, true
	case "odd":
		return uartex.ParityOdd, true
	default:
		return 0, false
	}
}

func parseDir(s string) (uartex.Direction, bool) {
	switch s {
	case "tx":
		return uartex.DirTx, true
	case "rx":
		return uartex.DirRx, true
	default:
		return 0, false
	}
}

type uartBuilder struct{}

func (uartBuilder) Build(in BuildInput) (Adaptor, error) {
	if in.Bus == nil {
		return nil, errcode.InvalidHandle
	}
	var p UARTParams
	if err := util.DecodeJSON(in.Params, &p); err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "uart.build", Err: err}
	}
	cfg, err := p.config()
	if err != nil {
		return nil, err
	}
	h := uartex.New(in.Bus, in.Clock)
	if err := h.Configure(cfg); err != nil {
		return nil, err
	}
	if err := busErr(in.Bus, "uart.configure"); err != nil {
		_ = h.DeInit()
		return nil, err
	}
	return &uartAdaptor{id: in.DeviceID, h: h, bus: in.Bus}, nil
}

type uartAdaptor struct {
	id  string
	h   *uartex.Handle
	bus regs.Bus
}

func (a *uartAdaptor) ID() string { return a.id }

func (a *uartAdaptor) Capabilities() []CapInfo {
	return []CapInfo{
		{
			Kind: KindUART,
			Info: map[string]any{
				"schema_version": 1,
				"driver":         "uart_fifo",
				"fifo_depth":     8,
			},
		},
	}
}

// Controls:
//   - set_format: {"wordlen":8,"parity":"none|even|odd"} → {mask}
//   - set_fifo_threshold: {"dir":"tx|rx","threshold":"1/2"}
//   - fifo: {"enable":true}
//   - set_address_length: {"bits":4|7}
//   - info: {} → {mask, fifo, tx_threshold, rx_threshold, nb_tx, nb_rx, state}
//   - receive: {"max":64,"timeout_ticks":100} → {n, data_b64}
func (a *uartAdaptor) Control(kind, method string, payload any) (any, error) {
	if kind != KindUART {
		return nil, errcode.Unsupported
	}
	m, _ := payload.(map[string]any)
	var (
		out any
		err error
	)
	switch method {
	case "set_format":
		cur := a.h.Config()
		wl := uartex.WordLength(util.IntFrom(m, "wordlen", int(cur.WordLength)))
		par := cur.Parity
		if s := util.StrFrom(m, "parity"); s != "" {
			var ok bool
			if par, ok = parseParity(s); !ok {
				return nil, errcode.InvalidParams
			}
		}
		err = a.h.SetFormat(wl, par)
		out = map[string]any{"mask": a.h.Mask()}
	case "set_fifo_threshold":
		dir, ok := parseDir(util.StrFrom(m, "dir"))
		if !ok {
			return nil, errcode.InvalidParams
		}
		th, ok := uartex.ParseThreshold(util.StrFrom(m, "threshold"))
		if !ok {
			return nil, errcode.InvalidParams
		}
		err = a.h.SetFifoThreshold(th, dir)
		out = map[string]any{"ok": err == nil}
	case "fifo":
		if util.BoolFrom(m, "enable", true) {
			err = a.h.EnableFifoMode()
		} else {
			err = a.h.DisableFifoMode()
		}
		out = map[string]any{"ok": err == nil}
	case "set_address_length":
		var al uartex.AddressLength
		switch util.IntFrom(m, "bits", 0) {
		case 4:
			al = uartex.Address4Bit
		case 7:
			al = uartex.Address7Bit
		default:
			return nil, errcode.InvalidParams
		}
		err = a.h.SetAddressLength(al)
		out = map[string]any{"ok": err == nil}
	case "info":
		nbTx, nbRx := a.h.NbDataToProcess()
		out = map[string]any{
			"mask":         a.h.Mask(),
			"fifo":         a.h.FifoMode(),
			"tx_threshold": a.h.FifoThreshold(uartex.DirTx).String(),
			"rx_threshold": a.h.FifoThreshold(uartex.DirRx).String(),
			"nb_tx":        nbTx,
			"nb_rx":        nbRx,
			"state":        a.h.State().String(),
		}
	case "receive":
		limit := mathx.Clamp(util.IntFrom(m, "max", 64), 2, 256)
		tmo := util.IntFrom(m, "timeout_ticks", 100)
		if tmo <= 0 {
			tmo = 100
		}
		buf := make([]byte, limit)
		var n int
		n, err = a.h.ReceiveToIdle(context.Background(), buf, uint32(tmo))
		out = map[string]any{"n": n, "data_b64": base64.StdEncoding.EncodeToString(buf[:n])}
	default:
		return nil, errcode.Unsupported
	}
	if err != nil {
		return nil, err
	}
	if err := busErr(a.bus, "uart."+method); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *uartAdaptor) Close() error { return a.h.DeInit() }
