package members

import (
	"encoding/json"
	"net/http"
	"strconv"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/citizenwallet/governance/pkg/whitelist"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

type Service struct {
	engine *voting.Engine
}

func NewService(engine *voting.Engine) *Service {
	return &Service{
		engine: engine,
	}
}

type membersRequest struct {
	Addresses []string `json:"addresses"`
}

type populationResponse struct {
	Block      uint64 `json:"block"`
	Population uint64 `json:"population"`
}

type memberResponse struct {
	Address  string                       `json:"address"`
	Block    uint64                       `json:"block"`
	Eligible bool                         `json:"eligible"`
	History  []whitelist.Checkpoint[bool] `json:"history"`
}

// block parses the block query param, 0 meaning the current state
func block(r *http.Request) (uint64, error) {
	q := r.URL.Query().Get("block")
	if q == "" {
		return whitelist.CurrentCheckpoint, nil
	}

	return strconv.ParseUint(q, 10, 64)
}

// GetMembers godoc
//
//		@Summary		Fetch the current whitelist
//		@Tags			members
//		@Produce		json
//		@Success		200	{object}	common.Response
//		@Router			/members [get]
func (s *Service) GetMembers(w http.ResponseWriter, r *http.Request) {
	members := s.engine.Members()

	addrs := make([]string, 0, len(members))
	for _, m := range members {
		addrs = append(addrs, m.Hex())
	}

	err := com.BodyMultiple(w, addrs, com.Pagination{Limit: len(addrs), Offset: 0, Total: len(addrs)})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetPopulation returns the number of eligible addresses at a block.
func (s *Service) GetPopulation(w http.ResponseWriter, r *http.Request) {
	b, err := block(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	population := s.engine.Population()
	if b != whitelist.CurrentCheckpoint {
		population = s.engine.PopulationAt(b)
	}

	err = com.Body(w, populationResponse{Block: b, Population: population}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetMember godoc
//
//		@Summary		Fetch the eligibility of an address
//		@Tags			members
//		@Produce		json
//		@Param			acc_addr	path		string	true	"Address"
//		@Param			block		query		int		false	"Checkpoint, current when omitted"
//		@Success		200	{object}	common.Response
//		@Failure		400
//		@Router			/members/{acc_addr} [get]
func (s *Service) GetMember(w http.ResponseWriter, r *http.Request) {
	addr, err := com.ParseAddress(chi.URLParam(r, "acc_addr"))
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	b, err := block(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = com.Body(w, memberResponse{
		Address:  addr.Hex(),
		Block:    b,
		Eligible: s.engine.IsEligibleAt(addr, b),
		History:  s.engine.MemberHistory(addr),
	}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// AddMembers whitelists addresses. The signer needs MODIFY_WHITELIST_PERMISSION.
func (s *Service) AddMembers(w http.ResponseWriter, r *http.Request) {
	s.setEligible(w, r, true)
}

// RemoveMembers removes addresses from the whitelist.
func (s *Service) RemoveMembers(w http.ResponseWriter, r *http.Request) {
	s.setEligible(w, r, false)
}

func (s *Service) setEligible(w http.ResponseWriter, r *http.Request, eligible bool) {
	caller, ok := com.GetContextAddress(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req membersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	addrs, err := com.ParseAddresses(req.Addresses)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	var update func(common.Address, []common.Address) error = s.engine.RemoveAddresses
	if eligible {
		update = s.engine.AddAddresses
	}

	if err := update(caller, addrs); err != nil {
		com.ErrorBody(w, err)
		return
	}

	head, _ := s.engine.Now()

	err = com.Body(w, populationResponse{Block: head, Population: s.engine.Population()}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
