package dao

import (
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"

	"github.com/citizenwallet/governance/pkg/acl"
	"github.com/citizenwallet/governance/pkg/chain"
	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrActionFailed        = errors.New("action failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownMethod       = errors.New("unknown method")
)

// Outcome is the result of a call the organization made. Logs are published
// only if the whole batch succeeds; otherwise Undo restores the target.
type Outcome struct {
	Output []byte
	Logs   []types.Log
	Undo   func()
}

// Target is a contract the organization can call.
type Target interface {
	Call(caller common.Address, value *big.Int, data []byte) (*Outcome, error)
}

type permission struct {
	where common.Address
	who   common.Address
	id    common.Hash
}

// DAO is an in-process organization: a permission table, a treasury and a
// set of callable targets. A batch of actions is applied entirely or not
// at all.
type DAO struct {
	mu sync.Mutex

	address common.Address
	clock   chain.Clock
	emitter govlog.Emitter

	pmu         sync.RWMutex
	permissions map[permission]bool

	targets  map[common.Address]Target
	balances map[common.Address]*big.Int
}

func New(address common.Address, clock chain.Clock, emitter govlog.Emitter) *DAO {
	if emitter == nil {
		emitter = govlog.Discard{}
	}

	return &DAO{
		address:     address,
		clock:       clock,
		emitter:     emitter,
		permissions: map[permission]bool{},
		targets:     map[common.Address]Target{},
		balances:    map[common.Address]*big.Int{},
	}
}

func (d *DAO) Address() common.Address {
	return d.address
}

func (d *DAO) HasPermission(where, who common.Address, permissionID common.Hash) bool {
	d.pmu.RLock()
	defer d.pmu.RUnlock()

	return d.permissions[permission{where, who, permissionID}]
}

// Grant gives who the permission on where and reports whether it was new.
func (d *DAO) Grant(where, who common.Address, permissionID common.Hash) bool {
	d.pmu.Lock()
	defer d.pmu.Unlock()

	p := permission{where, who, permissionID}
	if d.permissions[p] {
		return false
	}

	d.permissions[p] = true
	return true
}

// Revoke removes the permission and reports whether it was present.
func (d *DAO) Revoke(where, who common.Address, permissionID common.Hash) bool {
	d.pmu.Lock()
	defer d.pmu.Unlock()

	p := permission{where, who, permissionID}
	if !d.permissions[p] {
		return false
	}

	delete(d.permissions, p)
	return true
}

// SetTarget makes calls to addr reach t.
func (d *DAO) SetTarget(addr common.Address, t Target) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.targets[addr] = t
}

// Deposit credits the treasury.
func (d *DAO) Deposit(amount *big.Int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.credit(d.address, amount)
}

func (d *DAO) Balance(addr common.Address) *big.Int {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.balances[addr]
	if !ok {
		return new(big.Int)
	}

	return new(big.Int).Set(b)
}

// Execute performs actions on behalf of the organization. The actor needs
// EXECUTE_PERMISSION on the organization. Nothing is published: the caller
// emits the returned logs, or reverts the batch if its own call fails.
func (d *DAO) Execute(actor common.Address, callID uint64, actions []voting.Action) (*voting.Execution, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.execute(actor, callID, actions)
}

// Run executes actions and publishes their logs right away.
func (d *DAO) Run(actor common.Address, callID uint64, actions []voting.Action) ([][]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ex, err := d.execute(actor, callID, actions)
	if err != nil {
		return nil, err
	}

	d.emitter.Emit(ex.Logs...)

	return ex.Results, nil
}

func (d *DAO) execute(actor common.Address, callID uint64, actions []voting.Action) (*voting.Execution, error) {
	if err := acl.Check(d, d.address, actor, acl.ExecutePermissionID); err != nil {
		return nil, err
	}

	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	results := make([][]byte, 0, len(actions))
	logActions := make([]govlog.Action, 0, len(actions))
	logs := []types.Log{}

	for i, a := range actions {
		value := a.Value
		if value == nil {
			value = new(big.Int)
		}

		out, err := d.call(a.To, value, a.Data)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("%w: action %d to %s: %w", ErrActionFailed, i, a.To.Hex(), err)
		}

		undo = append(undo, out.Undo)
		results = append(results, out.Output)
		logs = append(logs, out.Logs...)
		logActions = append(logActions, govlog.Action{To: a.To, Value: value, Data: a.Data})
	}

	l, err := govlog.NewExecuted(d.address, d.clock.BlockNumber(), actor, new(big.Int).SetUint64(callID), logActions, results)
	if err != nil {
		rollback()
		return nil, err
	}

	log.Default().Printf("dao %s executed call %d from %s (%d actions)\n", d.address.Hex(), callID, actor.Hex(), len(actions))

	return &voting.Execution{
		Results: results,
		Logs:    append(logs, l),
		Revert: func() {
			d.mu.Lock()
			defer d.mu.Unlock()

			log.Default().Printf("dao %s reverting call %d\n", d.address.Hex(), callID)
			rollback()
		},
	}, nil
}

// call applies one action. On failure nothing it did remains applied.
func (d *DAO) call(to common.Address, value *big.Int, data []byte) (*Outcome, error) {
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", value)
	}

	undoTransfer := func() {}
	if value.Sign() > 0 {
		u, err := d.transfer(to, value)
		if err != nil {
			return nil, err
		}

		undoTransfer = u
	}

	var (
		out *Outcome
		err error
	)

	if to == d.address {
		out, err = d.selfCall(data)
	} else if t, ok := d.targets[to]; ok {
		out, err = t.Call(d.address, value, data)
	} else {
		// plain account
		out = &Outcome{}
	}

	if err != nil {
		undoTransfer()
		return nil, err
	}

	if out.Output == nil {
		out.Output = []byte{}
	}

	undoTarget := out.Undo
	out.Undo = func() {
		if undoTarget != nil {
			undoTarget()
		}

		undoTransfer()
	}

	return out, nil
}

func (d *DAO) transfer(to common.Address, value *big.Int) (func(), error) {
	bal, ok := d.balances[d.address]
	if !ok || bal.Cmp(value) < 0 {
		return nil, fmt.Errorf("%w: treasury holds %v, needs %s", ErrInsufficientBalance, bal, value)
	}

	d.credit(d.address, new(big.Int).Neg(value))
	d.credit(to, value)

	return func() {
		d.credit(to, new(big.Int).Neg(value))
		d.credit(d.address, value)
	}, nil
}

func (d *DAO) credit(addr common.Address, amount *big.Int) {
	b, ok := d.balances[addr]
	if !ok {
		b = new(big.Int)
		d.balances[addr] = b
	}

	b.Add(b, amount)
}

func (d *DAO) selfCall(data []byte) (*Outcome, error) {
	if len(data) == 0 {
		return &Outcome{}, nil
	}

	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short calldata", ErrUnknownMethod)
	}

	method, err := ABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", ErrUnknownMethod, data[:4])
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}

	where := args[0].(common.Address)
	who := args[1].(common.Address)
	id := common.Hash(args[2].([32]byte))

	switch method.Name {
	case MethodGrant:
		if !d.Grant(where, who, id) {
			return &Outcome{}, nil
		}

		return &Outcome{Undo: func() { d.Revoke(where, who, id) }}, nil
	case MethodRevoke:
		if !d.Revoke(where, who, id) {
			return &Outcome{}, nil
		}

		return &Outcome{Undo: func() { d.Grant(where, who, id) }}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
}
