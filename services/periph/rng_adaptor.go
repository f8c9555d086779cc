// services/periph/rng_adaptor.go
package periph

import (
	"encoding/base64"
	"io"

	"periphhal/drivers/rng"
	"periphhal/errcode"
	"periphhal/regs"
	"periphhal/services/periph/internal/util"
	"periphhal/x/mathx"
)

func init() { RegisterBuilder("rng", rngBuilder{}) }

type RNGParams struct {
	Divider      int    `json:"divider,omitempty"`       // 0..3 (none, /2, /4, /8)
	TimeoutTicks uint32 `json:"timeout_ticks,omitempty"` // default 2
}

type rngBuilder struct{}

func (rngBuilder) Build(in BuildInput) (Adaptor, error) {
	if in.Bus == nil {
		return nil, errcode.InvalidHandle
	}
	var p RNGParams
	if err := util.DecodeJSON(in.Params, &p); err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "rng.build", Err: err}
	}
	div := rng.Divider(p.Divider)
	if p.Divider < 0 || !div.Valid() {
		return nil, errcode.InvalidParams
	}
	h := rng.New(in.Bus, in.Clock, rng.Config{Timeout: p.TimeoutTicks})
	if err := h.Init(div); err != nil {
		_ = h.DeInit()
		return nil, err
	}
	if err := busErr(in.Bus, "rng.init"); err != nil {
		_ = h.DeInit()
		return nil, err
	}
	return &rngAdaptor{id: in.DeviceID, h: h, bus: in.Bus}, nil
}

type rngAdaptor struct {
	id  string
	h   *rng.Handle
	bus regs.Bus
}

func (a *rngAdaptor) ID() string { return a.id }

func (a *rngAdaptor) Capabilities() []CapInfo {
	return []CapInfo{
		{
			Kind: KindRNG,
			Info: map[string]any{
				"schema_version": 1,
				"driver":         "rng",
				"divider":        int(a.h.Divider()),
			},
		},
	}
}

// Controls:
//   - generate: {} → {value:uint32}
//   - read: {"n":16} → {data_b64, n}   (1..256 bytes)
//   - last: {} → {value}
//   - state: {} → {state, error}
//   - init: {"divider":0..3} (defaults to current)
//   - deinit: {}
func (a *rngAdaptor) Control(kind, method string, payload any) (any, error) {
	if kind != KindRNG {
		return nil, errcode.Unsupported
	}
	m, _ := payload.(map[string]any)
	var (
		out any
		err error
	)
	switch method {
	case "generate":
		var v uint32
		v, err = a.h.GenerateRandomNumber()
		out = map[string]any{"value": v}
	case "read":
		n := mathx.Clamp(util.IntFrom(m, "n", 16), 1, 256)
		buf := make([]byte, n)
		_, err = io.ReadFull(rng.NewReader(a.h), buf)
		out = map[string]any{"n": n, "data_b64": base64.StdEncoding.EncodeToString(buf)}
	case "last":
		out = map[string]any{"value": a.h.ReadLastRandomNumber()}
	case "state":
		out = map[string]any{"state": a.h.State().String(), "error": a.h.ErrorCode().String()}
	case "init":
		d := util.IntFrom(m, "divider", int(a.h.Divider()))
		if d < 0 || !rng.Divider(d).Valid() {
			return nil, errcode.InvalidParams
		}
		err = a.h.Init(rng.Divider(d))
		out = map[string]any{"ok": err == nil}
	case "deinit":
		err = a.h.DeInit()
		out = map[string]any{"ok": err == nil}
	default:
		return nil, errcode.Unsupported
	}
	if err != nil {
		return nil, err
	}
	if err := busErr(a.bus, "rng."+method); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *rngAdaptor) Close() error { return a.h.DeInit() }
