package dao

import (
	"errors"
	"math/big"

	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/ethereum/go-ethereum/common"
)

var ErrNotPayable = errors.New("target does not accept value")

// EngineTarget routes actions addressed to a voting engine into it, so
// passed proposals can change the whitelist and the configuration.
type EngineTarget struct {
	Engine *voting.Engine
}

func (t EngineTarget) Call(caller common.Address, value *big.Int, data []byte) (*Outcome, error) {
	if value.Sign() != 0 {
		return nil, ErrNotPayable
	}

	logs, revert, err := t.Engine.Call(caller, data)
	if err != nil {
		return nil, err
	}

	return &Outcome{Logs: logs, Undo: revert}, nil
}
