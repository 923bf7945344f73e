package chain

import (
	"math/big"
	"net/http"

	"github.com/citizenwallet/governance/internal/common"
)

// Clock is the block and timestamp the node currently observes
type Clock interface {
	Now() (uint64, uint64)
}

type Service struct {
	clock   Clock
	chainId *big.Int
}

func NewService(clock Clock, chid *big.Int) *Service {
	return &Service{
		clock,
		chid,
	}
}

type response struct {
	ChainID     *big.Int `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
}

// Head returns the chain id and the block operations are currently applied at
func (s *Service) Head(w http.ResponseWriter, r *http.Request) {
	block, ts := s.clock.Now()

	err := common.Body(w, &response{ChainID: s.chainId, BlockNumber: block, Timestamp: ts}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
