package ethrequest

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	ETHChainID = "eth_chainId"

	// requests other than waiting for a receipt give up after this
	requestTimeout = 15 * time.Second
)

// EthService is the node's only connection to an RPC endpoint. It serves the
// head clock, the on-chain execution bridge and the log indexer.
type EthService struct {
	rpc    *rpc.Client
	client *ethclient.Client
	ctx    context.Context
}

func NewEthService(ctx context.Context, endpoint string) (*EthService, error) {
	c, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return &EthService{rpc: c, client: ethclient.NewClient(c), ctx: ctx}, nil
}

func (e *EthService) Context() context.Context {
	return e.ctx
}

func (e *EthService) Close() {
	e.client.Close()
}

func (e *EthService) request() (context.Context, context.CancelFunc) {
	return context.WithTimeout(e.ctx, requestTimeout)
}

// LatestHeader returns the tip, number and timestamp read together.
func (e *EthService) LatestHeader() (*types.Header, error) {
	ctx, cancel := e.request()
	defer cancel()

	return e.client.HeaderByNumber(ctx, nil)
}

func (e *EthService) LatestBlock() (*big.Int, error) {
	h, err := e.LatestHeader()
	if err != nil {
		return common.Big0, err
	}

	return h.Number, nil
}

// BaseFee is the base fee of the latest block, nil before London.
func (e *EthService) BaseFee() (*big.Int, error) {
	h, err := e.LatestHeader()
	if err != nil {
		return nil, err
	}

	return h.BaseFee, nil
}

func (e *EthService) MaxPriorityFeePerGas() (*big.Int, error) {
	ctx, cancel := e.request()
	defer cancel()

	return e.client.SuggestGasTipCap(ctx)
}

// EstimateFullGas estimates tx as sent by from, fees included.
func (e *EthService) EstimateFullGas(from common.Address, tx *types.Transaction) (uint64, error) {
	ctx, cancel := e.request()
	defer cancel()

	return e.client.EstimateGas(ctx, ethereum.CallMsg{
		From:       from,
		To:         tx.To(),
		GasFeeCap:  tx.GasFeeCap(),
		GasTipCap:  tx.GasTipCap(),
		Value:      tx.Value(),
		Data:       tx.Data(),
		AccessList: tx.AccessList(),
	})
}

func (e *EthService) SendTransaction(tx *types.Transaction) error {
	ctx, cancel := e.request()
	defer cancel()

	return e.client.SendTransaction(ctx, tx)
}

// WaitForTx blocks until tx is mined and returns its receipt. Only the
// service context bounds it.
func (e *EthService) WaitForTx(tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(e.ctx, e.client, tx)
}

func (e *EthService) FilterLogs(q ethereum.FilterQuery) ([]types.Log, error) {
	ctx, cancel := e.request()
	defer cancel()

	return e.client.FilterLogs(ctx, q)
}

// ChainID asks the endpoint directly, without the client's cached value.
func (e *EthService) ChainID() (*big.Int, error) {
	ctx, cancel := e.request()
	defer cancel()

	var id hexutil.Big
	if err := e.rpc.CallContext(ctx, &id, ETHChainID); err != nil {
		return nil, fmt.Errorf("%s: %w", ETHChainID, err)
	}

	return id.ToInt(), nil
}

func (e *EthService) NextNonce(address common.Address) (uint64, error) {
	ctx, cancel := e.request()
	defer cancel()

	return e.client.PendingNonceAt(ctx, address)
}
