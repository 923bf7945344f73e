package bridge

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrTxFailed      = errors.New("transaction reverted")
	ErrNoExecutedLog = errors.New("no Executed log in receipt")
)

// EVMRequester is the chain access the bridge needs.
type EVMRequester interface {
	ChainID() (*big.Int, error)
	NextNonce(address common.Address) (uint64, error)
	BaseFee() (*big.Int, error)
	MaxPriorityFeePerGas() (*big.Int, error)
	EstimateFullGas(from common.Address, tx *types.Transaction) (uint64, error)
	SendTransaction(tx *types.Transaction) error
	WaitForTx(tx *types.Transaction) (*types.Receipt, error)
}

// EVM forwards passed proposals to an organization contract by sending a
// signed execute transaction. The contract reverts as a whole, so a batch
// is either fully applied or not at all.
type EVM struct {
	mu sync.Mutex

	evm     EVMRequester
	dao     common.Address
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

func New(evm EVMRequester, dao common.Address, key *ecdsa.PrivateKey) (*EVM, error) {
	chainID, err := evm.ChainID()
	if err != nil {
		return nil, err
	}

	return &EVM{
		evm:     evm,
		dao:     dao,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// From is the account that signs execute transactions.
func (b *EVM) From() common.Address {
	return b.from
}

// Execute sends the batch and waits for it to be mined. The organization's
// logs reach the journal through the indexer, and a mined batch cannot be
// reverted, so the Execution only carries the results.
func (b *EVM) Execute(actor common.Address, callID uint64, actions []voting.Action) (*voting.Execution, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := Calldata(callID, actions)
	if err != nil {
		return nil, err
	}

	tx, err := b.transaction(data)
	if err != nil {
		return nil, err
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(b.chainID), b.key)
	if err != nil {
		return nil, err
	}

	err = b.evm.SendTransaction(signed)
	if err != nil {
		return nil, err
	}

	log.Default().Printf("[bridge] call %d for %s sent in %s\n", callID, actor.Hex(), signed.Hash().Hex())

	receipt, err := b.evm.WaitForTx(signed)
	if err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTxFailed, signed.Hash().Hex())
	}

	results, err := b.results(receipt, callID)
	if err != nil {
		return nil, err
	}

	return &voting.Execution{Results: results}, nil
}

func (b *EVM) transaction(data []byte) (*types.Transaction, error) {
	nonce, err := b.evm.NextNonce(b.from)
	if err != nil {
		return nil, err
	}

	tip, err := b.evm.MaxPriorityFeePerGas()
	if err != nil {
		return nil, err
	}

	baseFee, err := b.evm.BaseFee()
	if err != nil {
		return nil, err
	}

	feeCap := new(big.Int).Set(tip)
	if baseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(baseFee, big.NewInt(2)))
	}

	inner := &types.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		To:        &b.dao,
		Value:     common.Big0,
		Data:      data,
	}

	gas, err := b.evm.EstimateFullGas(b.from, types.NewTx(inner))
	if err != nil {
		return nil, err
	}

	// headroom over the estimate
	inner.Gas = gas * 12 / 10

	return types.NewTx(inner), nil
}

func (b *EVM) results(receipt *types.Receipt, callID uint64) ([][]byte, error) {
	for _, l := range receipt.Logs {
		if l.Address != b.dao || len(l.Topics) == 0 || l.Topics[0] != govlog.ExecutedID {
			continue
		}

		ev, err := govlog.Decode(*l)
		if err != nil {
			return nil, err
		}

		ex := ev.(*govlog.Executed)
		if ex.CallID.Uint64() == callID {
			return ex.ExecResults, nil
		}
	}

	return nil, fmt.Errorf("%w: call %d", ErrNoExecutedLog, callID)
}

// Calldata encodes execute(callId, actions) for the organization contract.
func Calldata(callID uint64, actions []voting.Action) ([]byte, error) {
	as := make([]govlog.Action, len(actions))
	for i, a := range actions {
		value := a.Value
		if value == nil {
			value = new(big.Int)
		}

		as[i] = govlog.Action{To: a.To, Value: value, Data: a.Data}
	}

	return govlog.ABI.Pack(govlog.MethodExecute, new(big.Int).SetUint64(callID), as)
}
