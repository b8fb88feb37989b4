package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// Dispatcher is the method-name-keyed request/response table spec.md §6's
// command surface describes, grounded on the teacher's
// internal/adapters/rpc dispatch tables: each command name maps to a
// handler taking raw JSON params and returning a JSON-marshalable result.
// internal/core.Service remains usable directly as a Go API; Dispatcher
// exists for hosts that want a single untyped entry point (e.g. a
// stdio/TCP JSON-RPC loop such as cmd/ghost-core could run).
type Dispatcher struct {
	svc      *Service
	handlers map[string]func(ctx context.Context, params json.RawMessage) (any, error)
}

func NewDispatcher(svc *Service) *Dispatcher {
	d := &Dispatcher{svc: svc}
	d.handlers = map[string]func(context.Context, json.RawMessage) (any, error){
		"init_identity":    d.initIdentity,
		"get_public_id":    d.getPublicID,
		"start_ghost_mode": d.startGhostMode,
		"stop_ghost_mode":  d.stopGhostMode,
		"send_ghost_message": d.sendGhostMessage,
		"create_drop":      d.createDrop,
		"open_drop":        d.openDrop,
		"test_ipfs":        d.testIPFS,
		"export_mnemonic":  d.exportMnemonic,
		"import_mnemonic":  d.importMnemonic,
	}
	return d
}

// Dispatch looks up method and invokes it with params, returning a
// CategorizedError with CategoryInternal if no such command exists.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	handler, ok := d.handlers[method]
	if !ok {
		return nil, NewCategorizedError(CategoryInternal, fmt.Errorf("core: unknown command %q", method))
	}
	return handler(ctx, params)
}

func (d *Dispatcher) initIdentity(_ context.Context, params json.RawMessage) (any, error) {
	var req struct{ Password string `json:"password"` }
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, badParams(err)
	}
	id, err := d.svc.InitIdentity(req.Password)
	if err != nil {
		return nil, err
	}
	return map[string]string{"public_id": id}, nil
}

func (d *Dispatcher) getPublicID(_ context.Context, _ json.RawMessage) (any, error) {
	id, err := d.svc.GetPublicID()
	if err != nil {
		return nil, err
	}
	return map[string]string{"public_id": id}, nil
}

func (d *Dispatcher) startGhostMode(ctx context.Context, _ json.RawMessage) (any, error) {
	if err := d.svc.StartGhostMode(ctx); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (d *Dispatcher) stopGhostMode(_ context.Context, _ json.RawMessage) (any, error) {
	d.svc.StopGhostMode()
	return map[string]bool{"ok": true}, nil
}

func (d *Dispatcher) sendGhostMessage(ctx context.Context, params json.RawMessage) (any, error) {
	var req struct {
		Target  string `json:"target"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, badParams(err)
	}
	id, err := d.svc.SendGhostMessage(ctx, req.Target, req.Content)
	if err != nil {
		return nil, err
	}
	return map[string]string{"id": id}, nil
}

func (d *Dispatcher) createDrop(ctx context.Context, params json.RawMessage) (any, error) {
	var req struct {
		Path      string `json:"path"`
		Threshold int    `json:"threshold"`
		Total     int    `json:"total"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, badParams(err)
	}
	created, err := d.svc.CreateDrop(ctx, req.Path, req.Threshold, req.Total)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (d *Dispatcher) openDrop(ctx context.Context, params json.RawMessage) (any, error) {
	var req struct {
		CID     string   `json:"cid"`
		Shares  []string `json:"shares"`
		DestDir string   `json:"dest_path"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, badParams(err)
	}
	if err := d.svc.OpenDrop(ctx, req.CID, req.Shares, req.DestDir); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (d *Dispatcher) testIPFS(ctx context.Context, _ json.RawMessage) (any, error) {
	id, err := d.svc.TestIPFS(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"id": id}, nil
}

func (d *Dispatcher) exportMnemonic(_ context.Context, _ json.RawMessage) (any, error) {
	mnemonic, err := d.svc.ExportMnemonic()
	if err != nil {
		return nil, err
	}
	return map[string]string{"mnemonic": mnemonic}, nil
}

func (d *Dispatcher) importMnemonic(_ context.Context, params json.RawMessage) (any, error) {
	var req struct {
		Mnemonic string `json:"mnemonic"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, badParams(err)
	}
	id, err := d.svc.ImportMnemonic(req.Mnemonic, req.Password)
	if err != nil {
		return nil, err
	}
	return map[string]string{"public_id": id}, nil
}

func badParams(err error) *CategorizedError {
	return NewCategorizedError(CategoryInternal, fmt.Errorf("core: bad params: %w", err))
}
