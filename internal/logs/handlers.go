package logs

import (
	"net/http"
	"strconv"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-chi/chi/v5"
)

// LogReader is the read side of the local log journal
type LogReader interface {
	GetLogs(from uint, limit int) ([]types.Log, error)
	GetAddressLogs(address common.Address, topic0 *common.Hash) ([]types.Log, error)
	Count() (uint, error)
}

type Service struct {
	ldb LogReader
}

func NewService(ldb LogReader) *Service {
	return &Service{
		ldb: ldb,
	}
}

// Log is a journal entry with its decoded arguments
type Log struct {
	Index       uint          `json:"index"`
	Address     string        `json:"address"`
	BlockNumber uint64        `json:"block_number"`
	Event       string        `json:"event"`
	Topics      []common.Hash `json:"topics"`
	Data        hexutil.Bytes `json:"data"`
	Args        any           `json:"args,omitempty"`
}

func toLogs(logs []types.Log) []Log {
	out := make([]Log, 0, len(logs))
	for _, l := range logs {
		entry := Log{
			Index:       l.Index,
			Address:     l.Address.Hex(),
			BlockNumber: l.BlockNumber,
			Topics:      l.Topics,
			Data:        l.Data,
		}

		if len(l.Topics) > 0 {
			entry.Event = govlog.EventName(l.Topics[0])
		}

		args, err := govlog.Decode(l)
		if err == nil {
			entry.Args = args
		}

		out = append(out, entry)
	}

	return out
}

// Get godoc
//
//		@Summary		Fetch emitted logs
//		@Description	get logs in emission order starting at a journal index
//		@Tags			logs
//		@Produce		json
//		@Param			from	query		int	false	"First journal index"
//		@Param			limit	query		int	false	"Limit"
//		@Success		200	{object}	common.Response
//		@Failure		500
//		@Router			/logs [get]
func (s *Service) Get(w http.ResponseWriter, r *http.Request) {
	// parse pagination params from url query
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	from, err := strconv.ParseUint(r.URL.Query().Get("from"), 10, 64)
	if err != nil {
		from = 0
	}

	logs, err := s.ldb.GetLogs(uint(from), limit)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	total, err := s.ldb.Count()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	err = com.BodyMultiple(w, toLogs(logs), com.Pagination{Limit: limit, Offset: int(from), Total: int(total)})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetContract godoc
//
//		@Summary		Fetch the logs of one emitter
//		@Tags			logs
//		@Produce		json
//		@Param			contract_address	path		string	true	"Emitter address"
//		@Param			event				query		string	false	"Event name, e.g. VoteCast"
//		@Success		200	{object}	common.Response
//		@Failure		400
//		@Failure		500
//		@Router			/logs/{contract_address} [get]
func (s *Service) GetContract(w http.ResponseWriter, r *http.Request) {
	addr, err := com.ParseAddress(chi.URLParam(r, "contract_address"))
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	var topic0 *common.Hash
	if name := r.URL.Query().Get("event"); name != "" {
		ev, ok := govlog.ABI.Events[name]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		topic0 = &ev.ID
	}

	logs, err := s.ldb.GetAddressLogs(addr, topic0)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	err = com.BodyMultiple(w, toLogs(logs), com.Pagination{Limit: len(logs), Offset: 0, Total: len(logs)})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
