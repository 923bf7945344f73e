package voting

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/citizenwallet/governance/pkg/acl"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	MethodAddAddresses     = "addAddresses"
	MethodRemoveAddresses  = "removeAddresses"
	MethodSetConfiguration = "setConfiguration"
)

var (
	ErrNotExecuting  = errors.New("engine is not executing a proposal")
	ErrUnknownMethod = errors.New("unknown engine method")
)

const engineABI = `[
	{"type":"function","name":"addAddresses","stateMutability":"nonpayable","inputs":[
		{"name":"members","type":"address[]"}
	],"outputs":[]},
	{"type":"function","name":"removeAddresses","stateMutability":"nonpayable","inputs":[
		{"name":"members","type":"address[]"}
	],"outputs":[]},
	{"type":"function","name":"setConfiguration","stateMutability":"nonpayable","inputs":[
		{"name":"participationRequiredPct","type":"uint256"},
		{"name":"supportRequiredPct","type":"uint256"},
		{"name":"minDuration","type":"uint64"}
	],"outputs":[]}
]`

// ABI is the part of the engine reachable through proposal actions.
var ABI = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(engineABI))
	if err != nil {
		panic(err)
	}

	return a
}()

func AddAddressesCalldata(addrs []common.Address) ([]byte, error) {
	return ABI.Pack(MethodAddAddresses, addrs)
}

func RemoveAddressesCalldata(addrs []common.Address) ([]byte, error) {
	return ABI.Pack(MethodRemoveAddresses, addrs)
}

func SetConfigurationCalldata(cfg Configuration) ([]byte, error) {
	return ABI.Pack(MethodSetConfiguration, cfg.ParticipationRequired, cfg.SupportRequired, cfg.MinDuration)
}

// Call applies calldata the organization sends to the engine while the
// engine executes one of its own proposals. The changes land in the block
// of that execution. Logs are handed back to be published with the
// organization's batch and revert undoes the changes if the batch fails.
//
// Call does not take the engine lock: the executing call already holds it.
func (e *Engine) Call(caller common.Address, data []byte) (logs []types.Log, revert func(), err error) {
	running := e.running.Load()
	if running == nil {
		return nil, nil, ErrNotExecuting
	}

	if len(data) < 4 {
		return nil, nil, fmt.Errorf("%w: short calldata", ErrUnknownMethod)
	}

	method, err := ABI.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %x", ErrUnknownMethod, data[:4])
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}

	o := &op{address: running.address, block: running.block, now: running.now}
	defer o.rollbackOn(&err)

	switch method.Name {
	case MethodAddAddresses, MethodRemoveAddresses:
		if err := acl.Check(e.auth, e.address, caller, acl.ModifyWhitelistPermissionID); err != nil {
			return nil, nil, err
		}

		addrs := args[0].([]common.Address)
		if err := e.setEligible(o, addrs, method.Name == MethodAddAddresses); err != nil {
			return nil, nil, err
		}
	case MethodSetConfiguration:
		if err := acl.Check(e.auth, e.address, caller, acl.ModifyConfigPermissionID); err != nil {
			return nil, nil, err
		}

		cfg := Configuration{
			ParticipationRequired: args[0].(*big.Int),
			SupportRequired:       args[1].(*big.Int),
			MinDuration:           args[2].(uint64),
		}

		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}

		if err := e.setConfiguration(o, cfg); err != nil {
			return nil, nil, err
		}
	}

	return o.logs, o.abort, nil
}
