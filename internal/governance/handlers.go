package governance

import (
	"encoding/json"
	"net/http"
	"strconv"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/citizenwallet/governance/pkg/voting"
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

type voteRequest struct {
	Choice           voting.VoterState `json:"choice"`
	ExecuteIfDecided bool              `json:"execute_if_decided"`
}

type voterResponse struct {
	Voter   string            `json:"voter"`
	State   voting.VoterState `json:"state"`
	CanVote bool              `json:"can_vote"`
}

type executableResponse struct {
	ID         uint64 `json:"id"`
	Executable bool   `json:"executable"`
}

type createdResponse struct {
	ID uint64 `json:"id"`
}

func proposalID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "proposal_id"), 10, 64)
}

// GetConfig godoc
//
//		@Summary		Fetch the voting configuration
//		@Tags			governance
//		@Produce		json
//		@Success		200	{object}	common.Response
//		@Router			/config [get]
func (s *Service) GetConfig(w http.ResponseWriter, r *http.Request) {
	err := com.Body(w, s.engine.Configuration(), nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// SetConfig replaces the thresholds and min duration of future proposals.
// The signer needs MODIFY_VOTE_CONFIG on the plugin.
func (s *Service) SetConfig(w http.ResponseWriter, r *http.Request) {
	caller, ok := com.GetContextAddress(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var cfg voting.Configuration
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := s.engine.SetConfiguration(caller, cfg); err != nil {
		com.ErrorBody(w, err)
		return
	}

	err := com.Body(w, s.engine.Configuration(), nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetProposals godoc
//
//		@Summary		Fetch proposals
//		@Description	get proposals by creation order
//		@Tags			governance
//		@Produce		json
//		@Param			limit	query		int	false	"Limit"
//		@Param			offset	query		int	false	"Offset"
//		@Success		200	{object}	common.Response
//		@Router			/proposals [get]
func (s *Service) GetProposals(w http.ResponseWriter, r *http.Request) {
	// parse pagination params from url query
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	props, err := s.engine.Proposals(offset, limit)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	total, err := s.engine.ProposalCount()
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	err = com.BodyMultiple(w, props, com.Pagination{Limit: limit, Offset: offset, Total: total})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetProposal godoc
//
//		@Summary		Fetch a proposal
//		@Tags			governance
//		@Produce		json
//		@Param			proposal_id	path		int	true	"Proposal id"
//		@Success		200	{object}	common.Response
//		@Failure		400
//		@Failure		404
//		@Router			/proposals/{proposal_id} [get]
func (s *Service) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	p, err := s.engine.Proposal(id)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	err = com.Body(w, p, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// CreateProposal opens a proposal on behalf of the signer.
func (s *Service) CreateProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := com.GetContextAddress(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req voting.ProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id, err := s.engine.CreateProposal(caller, req)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	err = com.Body(w, createdResponse{ID: id}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Vote casts, replaces or withdraws the signer's vote.
func (s *Service) Vote(w http.ResponseWriter, r *http.Request) {
	caller, ok := com.GetContextAddress(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	id, err := proposalID(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = s.engine.Vote(caller, id, req.Choice, req.ExecuteIfDecided)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	s.GetProposal(w, r)
}

// Execute runs the actions of a decided proposal. Anyone may trigger it.
func (s *Service) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = s.engine.Execute(id)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	s.GetProposal(w, r)
}

func (s *Service) GetExecutable(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ok, err := s.engine.CanExecute(id)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	err = com.Body(w, executableResponse{ID: id, Executable: ok}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetVoter returns the recorded choice of a voter and whether it may vote now.
func (s *Service) GetVoter(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	voter, err := com.ParseAddress(chi.URLParam(r, "voter_address"))
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	state, err := s.engine.VoterState(id, voter)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	canVote, err := s.engine.CanVote(id, voter)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	err = com.Body(w, voterResponse{Voter: voter.Hex(), State: state, CanVote: canVote}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
