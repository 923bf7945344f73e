package version

import (
	"net/http"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/ethereum/go-ethereum/common"
)

// Version of the api
const Version = "0.1.0"

// Node describes the engine this api serves
type Node interface {
	Address() common.Address
	Initialized() bool
}

type Service struct {
	node Node
}

func NewService(node Node) *Service {
	return &Service{node}
}

type response struct {
	Version     string         `json:"version"`
	Engine      common.Address `json:"engine"`
	Initialized bool           `json:"initialized"`
}

// Current returns the api version and the engine it governs
func (s *Service) Current(w http.ResponseWriter, r *http.Request) {
	err := com.Body(w, &response{
		Version:     Version,
		Engine:      s.node.Address(),
		Initialized: s.node.Initialized(),
	}, nil)
	if err != nil {
		com.ErrorBody(w, err)
	}
}
