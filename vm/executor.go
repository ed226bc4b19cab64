package vm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/log"
)

var (
	// ErrStaleHeight is returned, with no state change, for a block at or
	// below the recorded height.
	ErrStaleHeight = errors.New("block height already applied")
	// ErrHeightGap is returned for a block more than one above the recorded
	// height. The caller must catch up first.
	ErrHeightGap = errors.New("block height skips ahead of the ledger")
	// ErrTimeRegression is returned for a block timestamped before its parent.
	ErrTimeRegression = errors.New("block timestamp precedes the previous block")
	// ErrRootMismatch is returned by Process when the computed roots differ
	// from the block header.
	ErrRootMismatch = errors.New("computed root does not match block header")
)

// Result is the outcome of applying one block. Executed counts
// instructions that consumed a nonce, successful or failed; Failed is the
// domain-error subset; Rejected were dropped before any handler ran.
type Result struct {
	Height     uint64
	StateRoot  string
	EventsRoot string
	Events     []events.Record
	Executed   int
	Failed     int
	Rejected   int
}

// Executor is the transition pipeline. It owns the state exclusively while
// a block is applied.
type Executor struct {
	state    core.State
	registry *Registry
	emitter  *events.Emitter
	workers  int
	log      *log.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds the pre-verification pool.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger replaces the module logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// NewExecutor creates an Executor over state. emitter may be nil.
func NewExecutor(state core.State, registry *Registry, emitter *events.Emitter, opts ...Option) *Executor {
	e := &Executor{
		state:    state,
		registry: registry,
		emitter:  emitter,
		workers:  runtime.GOMAXPROCS(0),
		log:      log.Module("vm"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// State returns the ledger the executor applies blocks to.
func (e *Executor) State() core.State { return e.state }

// Nonce returns the next expected nonce of key.
func (e *Executor) Nonce(key crypto.PublicKey) (uint64, error) {
	p, err := e.state.GetPlayer(key)
	if err != nil {
		return 0, err
	}
	return p.Nonce, nil
}

// prepared is the outcome of pre-verification for one transaction.
type prepared struct {
	tx   *core.Transaction
	ins  core.Instruction
	hash string
	err  error
}

// preverify decodes and signature-checks every transaction on a bounded
// pool. It reads no ledger state, so order does not matter here; results
// are indexed by position.
func (e *Executor) preverify(ctx context.Context, txs []core.RawTx) ([]prepared, error) {
	out := make([]prepared, len(txs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, raw := range txs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := prepared{hash: raw.Hash()}
			p.tx, p.err = core.DecodeTransaction(raw)
			if p.err == nil {
				p.err = p.tx.Verify()
			}
			if p.err == nil {
				p.ins, p.err = p.tx.Decode()
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyBlock runs the transition for block and leaves the result buffered
// in the state. The caller commits with Commit or drops it with Discard.
// On any error the buffer has already been discarded.
func (e *Executor) ApplyBlock(ctx context.Context, block *core.Block) (*Result, error) {
	res, err := e.apply(ctx, block)
	if err != nil {
		e.state.Discard()
		return nil, err
	}
	return res, nil
}

func (e *Executor) apply(ctx context.Context, block *core.Block) (*Result, error) {
	h := block.Header
	meta, err := e.state.GetMeta()
	if err != nil {
		return nil, core.Fault(err)
	}
	switch {
	case h.Height <= meta.Height:
		return nil, fmt.Errorf("%w: block %d, ledger at %d", ErrStaleHeight, h.Height, meta.Height)
	case h.Height > meta.Height+1:
		return nil, fmt.Errorf("%w: block %d, ledger at %d", ErrHeightGap, h.Height, meta.Height)
	case h.Timestamp < meta.Timestamp:
		return nil, fmt.Errorf("%w: %d < %d", ErrTimeRegression, h.Timestamp, meta.Timestamp)
	}
	policy, err := e.state.GetPolicy()
	if err != nil {
		return nil, core.Fault(fmt.Errorf("load policy: %w", err))
	}

	prep, err := e.preverify(ctx, block.Transactions)
	if err != nil {
		return nil, err
	}

	res := &Result{Height: h.Height}
	logRec := func(txIndex int, txHash string, evs []events.Event) {
		for _, ev := range evs {
			res.Events = append(res.Events, events.NewRecord(h.Height, txIndex, txHash, ev))
		}
	}

	for _, step := range e.registry.begin {
		evs, err := e.runStep(block, nil, policy, step)
		if err != nil {
			return nil, err
		}
		logRec(events.SystemTx, "", evs)
		if policy, err = e.state.GetPolicy(); err != nil {
			return nil, core.Fault(err)
		}
	}

	for i, p := range prep {
		if p.err != nil {
			res.Rejected++
			rej := events.TxRejected{Code: core.CodeOf(p.err)}
			if p.tx != nil {
				rej.Signer, rej.Nonce = p.tx.Signer, p.tx.Nonce
			}
			logRec(i, p.hash, []events.Event{rej})
			e.log.Debug("tx rejected", "height", h.Height, "index", i, "err", p.err)
			continue
		}
		evs, applied, failed, err := e.applyTx(block, policy, p)
		if err != nil {
			return nil, fmt.Errorf("tx %d (%s): %w", i, p.hash, err)
		}
		logRec(i, p.hash, evs)
		switch {
		case !applied:
			res.Rejected++
		case failed:
			res.Executed++
			res.Failed++
		default:
			res.Executed++
		}
		if policy, err = e.state.GetPolicy(); err != nil {
			return nil, core.Fault(err)
		}
	}

	if err := e.state.SetMeta(&core.ChainMeta{Height: h.Height, Timestamp: h.Timestamp}); err != nil {
		return nil, core.Fault(err)
	}
	res.StateRoot = e.state.ComputeRoot()
	if res.EventsRoot, err = events.Root(res.Events); err != nil {
		return nil, core.Fault(err)
	}
	e.log.Info("block applied",
		"height", h.Height,
		"txs", len(block.Transactions),
		"executed", res.Executed,
		"failed", res.Failed,
		"rejected", res.Rejected,
		"state_root", res.StateRoot,
	)
	return res, nil
}

// applyTx runs one verified transaction. applied is false when the nonce
// did not match; failed is true when the handler returned a domain error.
func (e *Executor) applyTx(block *core.Block, policy *core.Policy, p prepared) (evs []events.Event, applied, failed bool, err error) {
	signer, err := e.state.GetPlayer(p.tx.Signer)
	if err != nil {
		return nil, false, false, core.Fault(err)
	}
	if p.tx.Nonce != signer.Nonce || signer.Nonce == math.MaxUint64 {
		return []events.Event{events.TxRejected{Signer: p.tx.Signer, Nonce: p.tx.Nonce, Code: core.CodeNonce}}, false, false, nil
	}
	tag := p.ins.Tag()
	handler, ok := e.registry.Handler(tag.Family())
	if !ok {
		return []events.Event{events.TxRejected{Signer: p.tx.Signer, Nonce: p.tx.Nonce, Code: core.CodeUnknownTag}}, false, false, nil
	}

	snap, err := e.state.Snapshot()
	if err != nil {
		return nil, false, false, core.Fault(err)
	}
	ctx := &Context{State: e.state, Block: block, Tx: p.tx, Policy: policy}
	herr := invoke(func() error { return handler(ctx, p.ins) })
	if core.IsFault(herr) {
		return nil, false, false, herr
	}
	if herr != nil {
		if err := e.state.RevertToSnapshot(snap); err != nil {
			return nil, false, false, core.Fault(err)
		}
		evs = []events.Event{events.InstructionFailed{
			Signer: p.tx.Signer,
			Nonce:  p.tx.Nonce,
			Tag:    tag.String(),
			Code:   core.CodeOf(herr),
		}}
		e.log.Debug("instruction failed", "height", block.Header.Height, "tag", tag.String(), "err", herr)
	} else {
		evs = ctx.Events()
	}

	// The handler may have rewritten the signer; reload before bumping.
	signer, err = e.state.GetPlayer(p.tx.Signer)
	if err != nil {
		return nil, false, false, core.Fault(err)
	}
	signer.Nonce++
	if err := e.state.SetPlayer(signer); err != nil {
		return nil, false, false, core.Fault(err)
	}

	if herr == nil {
		for _, step := range e.registry.after[tag.Family()] {
			policy, err := e.state.GetPolicy()
			if err != nil {
				return nil, false, false, core.Fault(err)
			}
			sevs, err := e.runStep(block, p.tx, policy, step)
			if err != nil {
				return nil, false, false, err
			}
			evs = append(evs, sevs...)
		}
	}
	return evs, true, herr != nil, nil
}

// runStep executes a system step under its own snapshot. A domain error or
// panic reverts just the step and is logged; faults abort the block.
func (e *Executor) runStep(block *core.Block, tx *core.Transaction, policy *core.Policy, step namedStep) ([]events.Event, error) {
	snap, err := e.state.Snapshot()
	if err != nil {
		return nil, core.Fault(err)
	}
	ctx := &Context{State: e.state, Block: block, Tx: tx, Policy: policy}
	serr := invoke(func() error { return step.fn(ctx) })
	if core.IsFault(serr) {
		return nil, fmt.Errorf("system step %s: %w", step.name, serr)
	}
	if serr != nil {
		if err := e.state.RevertToSnapshot(snap); err != nil {
			return nil, core.Fault(err)
		}
		e.log.Warn("system step reverted", "step", step.name, "height", block.Header.Height, "err", serr)
		return nil, nil
	}
	return ctx.Events(), nil
}

// invoke calls fn and converts a panic into an invariant domain error.
func invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.NewError(core.CodeInvariant, "recovered: %v", r)
		}
	}()
	return fn()
}

// Commit flushes a block applied by ApplyBlock and publishes its events.
func (e *Executor) Commit(res *Result) error {
	if err := e.state.Commit(); err != nil {
		return err
	}
	if e.emitter != nil {
		e.emitter.EmitAll(res.Events)
		e.emitter.Emit(events.NewRecord(res.Height, events.SystemTx, "", events.BlockCommitted{
			Height:     res.Height,
			StateRoot:  res.StateRoot,
			EventsRoot: res.EventsRoot,
			Executed:   res.Executed,
			Failed:     res.Failed,
			Rejected:   res.Rejected,
		}))
	}
	return nil
}

// Discard drops a block applied by ApplyBlock.
func (e *Executor) Discard() { e.state.Discard() }

// Process applies block, checks its header roots when present and commits.
// A stale block is reported as ErrStaleHeight and leaves state untouched.
func (e *Executor) Process(ctx context.Context, block *core.Block) (*Result, error) {
	res, err := e.ApplyBlock(ctx, block)
	if err != nil {
		return nil, err
	}
	if (block.Header.StateRoot != "" && block.Header.StateRoot != res.StateRoot) ||
		(block.Header.EventsRoot != "" && block.Header.EventsRoot != res.EventsRoot) {
		e.Discard()
		return nil, fmt.Errorf("%w at height %d", ErrRootMismatch, block.Header.Height)
	}
	if err := e.Commit(res); err != nil {
		e.Discard()
		return nil, err
	}
	return res, nil
}
