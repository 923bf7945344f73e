package govindex

import (
	"context"
	"errors"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrIndexingRecoverable = errors.New("error indexing recoverable")
)

type EVMRequester interface {
	LatestBlock() (*big.Int, error)
	FilterLogs(q ethereum.FilterQuery) ([]types.Log, error)
}

// Indexer follows governance events emitted on chain by the organization
// contract and forwards them to an emitter in block order.
type Indexer struct {
	mu sync.Mutex

	rate      uint64
	contracts []common.Address
	evm       EVMRequester
	emitter   govlog.Emitter

	lastBlock uint64
}

// New creates an indexer that starts after block from.
func New(rate uint64, contracts []common.Address, evm EVMRequester, emitter govlog.Emitter, from uint64) *Indexer {
	if rate == 0 {
		rate = 1
	}

	return &Indexer{
		rate:      rate,
		contracts: contracts,
		evm:       evm,
		emitter:   emitter,
		lastBlock: from,
	}
}

func (i *Indexer) LastBlock() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.lastBlock
}

func (i *Indexer) makeIndexFilter(fromBlock, toBlock uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: i.contracts,
		Topics:    govlog.Topics(),
	}
}

// Index fetches every block between the last indexed block and the tip,
// rate blocks at a time, and returns the number of forwarded logs.
func (i *Indexer) Index() (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	latest, err := i.evm.LatestBlock()
	if err != nil {
		return 0, ErrIndexingRecoverable
	}
	target := latest.Uint64()

	count := 0
	for i.lastBlock < target {
		fromBlock := i.lastBlock + 1

		toBlock := fromBlock + i.rate - 1 // filter block range is inclusive
		if toBlock > target {
			toBlock = target
		}

		logs, err := i.evm.FilterLogs(i.makeIndexFilter(fromBlock, toBlock))
		if err != nil {
			return count, ErrIndexingRecoverable
		}

		logs = known(logs)
		if len(logs) > 0 {
			log.Default().Println("found ", len(logs), " logs between ", fromBlock, " and ", toBlock, " ...")

			i.emitter.Emit(logs...)
			count += len(logs)
		}

		i.lastBlock = toBlock
	}

	return count, nil
}

// known drops removed logs and logs that do not decode as governance events.
func known(logs []types.Log) []types.Log {
	out := []types.Log{}
	for _, l := range logs {
		if l.Removed {
			continue
		}

		if _, err := govlog.Decode(l); err != nil {
			log.Default().Println("skipping log ", l.TxHash.Hex(), ": ", err)
			continue
		}

		out = append(out, l)
	}

	return out
}

// Background indexes every syncrate until ctx is done.
func (i *Indexer) Background(ctx context.Context, syncrate time.Duration) error {
	for {
		_, err := i.Index()
		if err != nil {
			if !errors.Is(err, ErrIndexingRecoverable) {
				return err
			}

			log.Default().Println("[background] recoverable error: ", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(syncrate):
		}
	}
}
