package voting

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/citizenwallet/governance/pkg/acl"
	"github.com/citizenwallet/governance/pkg/chain"
	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/citizenwallet/governance/pkg/whitelist"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
)

// Execution is what an executor did for one batch. Logs are published by
// the engine after its own logs of the call. Revert, when set, undoes the
// batch if the engine's call fails afterwards.
type Execution struct {
	Results [][]byte
	Logs    []types.Log
	Revert  func()
}

// Executor performs the actions of a passed proposal on behalf of the
// organization. It either performs all of them or none.
type Executor interface {
	Execute(actor common.Address, callID uint64, actions []Action) (*Execution, error)
}

// Engine is a whitelist voting plugin. Every method is serialized; a
// mutating method either commits all of its effects and logs or none.
type Engine struct {
	mu sync.Mutex

	address  common.Address
	clock    chain.Clock
	auth     acl.Authorizer
	executor Executor
	store    ProposalStore
	emitter  govlog.Emitter

	registry    *whitelist.Registry
	config      Configuration
	initialized bool

	// set while the executor runs a proposal of this engine
	running atomic.Pointer[op]
}

// New creates an uninitialized engine living at address. A nil store
// defaults to a MemoryStore and a nil emitter discards logs.
func New(address common.Address, clock chain.Clock, auth acl.Authorizer, executor Executor, store ProposalStore, emitter govlog.Emitter) *Engine {
	if store == nil {
		store = NewMemoryStore()
	}

	if emitter == nil {
		emitter = govlog.Discard{}
	}

	return &Engine{
		address:  address,
		clock:    clock,
		auth:     auth,
		executor: executor,
		store:    store,
		emitter:  emitter,
		registry: whitelist.New(),
	}
}

// op collects the logs of one mutating call, all stamped with the block
// the call runs in, and the reverts of the state it already changed.
type op struct {
	address common.Address
	block   uint64
	now     uint64
	logs    []types.Log
	undo    []func()
}

func (o *op) onAbort(f func()) {
	if f != nil {
		o.undo = append(o.undo, f)
	}
}

func (o *op) abort() {
	for i := len(o.undo) - 1; i >= 0; i-- {
		o.undo[i]()
	}

	o.undo = nil
	o.logs = nil
}

// rollbackOn aborts o when the call returns a non-nil *err.
func (o *op) rollbackOn(err *error) {
	if *err != nil {
		o.abort()
	}
}

func (o *op) record(l types.Log, err error) error {
	if err != nil {
		return err
	}

	o.logs = append(o.logs, l)
	return nil
}

// begin opens a mutating call. Clocks that can seal blocks advance first
// so each call lands in its own block.
func (e *Engine) begin() *op {
	if s, ok := e.clock.(chain.Sealer); ok {
		s.Seal()
	}

	return &op{
		address: e.address,
		block:   e.clock.BlockNumber(),
		now:     e.clock.Timestamp(),
	}
}

func (e *Engine) commit(o *op) {
	if len(o.logs) > 0 {
		e.emitter.Emit(o.logs...)
	}
}

func (e *Engine) Address() common.Address {
	return e.address
}

// Initialize sets the first configuration and whitelists the initial
// members. It succeeds once.
func (e *Engine) Initialize(cfg Configuration, members []common.Address) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return ErrAlreadyInitialized
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	o := e.begin()
	defer o.rollbackOn(&err)

	if err := e.setEligible(o, members, true); err != nil {
		return err
	}

	if err := e.setConfiguration(o, cfg); err != nil {
		return err
	}

	e.initialized = true
	e.commit(o)

	log.Default().Printf("voting engine %s initialized with %d members\n", e.address.Hex(), e.registry.Population())

	return nil
}

func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.initialized
}

// SetConfiguration replaces the thresholds for proposals created from now
// on. Existing proposals keep the values they were created with.
func (e *Engine) SetConfiguration(caller common.Address, cfg Configuration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := acl.Check(e.auth, e.address, caller, acl.ModifyConfigPermissionID); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	o := e.begin()
	if err := e.setConfiguration(o, cfg); err != nil {
		o.abort()
		return err
	}

	e.commit(o)

	return nil
}

func (e *Engine) setConfiguration(o *op, cfg Configuration) error {
	if err := o.record(govlog.NewConfigUpdated(e.address, o.block, cfg.ParticipationRequired, cfg.SupportRequired, cfg.MinDuration)); err != nil {
		return err
	}

	prev := e.config
	e.config = cfg.clone()
	o.onAbort(func() { e.config = prev })

	return nil
}

func (e *Engine) Configuration() Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.config.clone()
}

// AddAddresses whitelists addrs from the current block on.
func (e *Engine) AddAddresses(caller common.Address, addrs []common.Address) error {
	return e.SetEligible(caller, addrs, true)
}

// RemoveAddresses removes addrs from the whitelist from the current block on.
func (e *Engine) RemoveAddresses(caller common.Address, addrs []common.Address) error {
	return e.SetEligible(caller, addrs, false)
}

func (e *Engine) SetEligible(caller common.Address, addrs []common.Address, eligible bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := acl.Check(e.auth, e.address, caller, acl.ModifyWhitelistPermissionID); err != nil {
		return err
	}

	o := e.begin()
	if err := e.setEligible(o, addrs, eligible); err != nil {
		o.abort()
		return err
	}

	e.commit(o)

	return nil
}

// setEligible records eligible for every distinct address in addrs,
// including those whose status does not change, and logs each of them.
func (e *Engine) setEligible(o *op, addrs []common.Address, eligible bool) error {
	addrs = lo.Uniq(addrs)

	for _, addr := range addrs {
		if err := e.registry.Check(addr, o.block); err != nil {
			return err
		}
	}

	for _, addr := range addrs {
		if err := o.record(govlog.NewMembershipChanged(e.address, o.block, addr, eligible)); err != nil {
			return err
		}

		undo, err := e.registry.Apply(addr, eligible, o.block)
		if err != nil {
			return err
		}

		o.onAbort(undo)
	}

	return nil
}

// IsEligibleAt reports the whitelist status of addr as of checkpoint, with
// whitelist.CurrentCheckpoint meaning now.
func (e *Engine) IsEligibleAt(addr common.Address, checkpoint uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.registry.IsEligibleAt(addr, checkpoint)
}

func (e *Engine) Population() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.registry.Population()
}

func (e *Engine) PopulationAt(block uint64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.registry.PopulationAt(block)
}

func (e *Engine) Members() []common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.registry.Members()
}

func (e *Engine) MemberHistory(addr common.Address) []whitelist.Checkpoint[bool] {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.registry.HistoryOf(addr)
}

// Now is the block and timestamp the engine currently observes.
func (e *Engine) Now() (uint64, uint64) {
	return e.clock.BlockNumber(), e.clock.Timestamp()
}
