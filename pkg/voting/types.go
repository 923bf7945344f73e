package voting

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// VoterState is the choice an address currently holds on a proposal.
type VoterState uint8

const (
	VoterStateNone VoterState = iota
	VoterStateYea
	VoterStateNay
	VoterStateAbstain
)

func (s VoterState) Valid() bool {
	switch s {
	case VoterStateNone, VoterStateYea, VoterStateNay, VoterStateAbstain:
		return true
	}

	return false
}

func (s VoterState) String() string {
	switch s {
	case VoterStateNone:
		return "none"
	case VoterStateYea:
		return "yea"
	case VoterStateNay:
		return "nay"
	case VoterStateAbstain:
		return "abstain"
	}

	return fmt.Sprintf("VoterState(%d)", uint8(s))
}

func (s VoterState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVoterState, uint8(s))
	}

	return []byte(s.String()), nil
}

func (s *VoterState) UnmarshalText(b []byte) error {
	v, err := ParseVoterState(string(b))
	if err != nil {
		return err
	}

	*s = v
	return nil
}

func ParseVoterState(s string) (VoterState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return VoterStateNone, nil
	case "yea", "yes":
		return VoterStateYea, nil
	case "nay", "no":
		return VoterStateNay, nil
	case "abstain":
		return VoterStateAbstain, nil
	}

	return VoterStateNone, fmt.Errorf("%w: %q", ErrInvalidVoterState, s)
}

// Action is a call the organization performs when a proposal executes.
type Action struct {
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
	Data  hexutil.Bytes  `json:"data"`
}

func (a Action) clone() Action {
	c := Action{To: a.To, Data: append(hexutil.Bytes{}, a.Data...)}
	if a.Value != nil {
		c.Value = new(big.Int).Set(a.Value)
	} else {
		c.Value = new(big.Int)
	}

	return c
}

func toLogActions(actions []Action) []govlog.Action {
	out := make([]govlog.Action, len(actions))
	for i, a := range actions {
		out[i] = govlog.Action{To: a.To, Value: a.Value, Data: a.Data}
	}

	return out
}

// Configuration holds the thresholds new proposals are created with.
// Ratios are fixed point with PctBase as 100%.
type Configuration struct {
	ParticipationRequired *big.Int `json:"participation_required_pct"`
	SupportRequired       *big.Int `json:"support_required_pct"`
	MinDuration           uint64   `json:"min_duration"`
}

func (c Configuration) clone() Configuration {
	return Configuration{
		ParticipationRequired: cloneBig(c.ParticipationRequired),
		SupportRequired:       cloneBig(c.SupportRequired),
		MinDuration:           c.MinDuration,
	}
}

// Validate checks the ratios against PctBase and the duration against zero.
func (c Configuration) Validate() error {
	if c.ParticipationRequired == nil || c.ParticipationRequired.Sign() < 0 || c.ParticipationRequired.Cmp(PctBase) > 0 {
		return fmt.Errorf("%w: %v", ErrParticipationExceeded, c.ParticipationRequired)
	}

	if c.SupportRequired == nil || c.SupportRequired.Sign() < 0 || c.SupportRequired.Cmp(PctBase) > 0 {
		return fmt.Errorf("%w: %v", ErrSupportExceeded, c.SupportRequired)
	}

	if c.MinDuration == 0 {
		return ErrZeroDuration
	}

	return nil
}

// Proposal is a vote on a batch of actions. Only the tallies, the voter
// states and the executed flag change after creation.
type Proposal struct {
	ID       uint64         `json:"id"`
	Creator  common.Address `json:"creator"`
	Metadata hexutil.Bytes  `json:"metadata"`
	Actions  []Action       `json:"actions"`
	Executed bool           `json:"executed"`

	SnapshotBlock uint64 `json:"snapshot_block"`
	StartDate     uint64 `json:"start_date"`
	EndDate       uint64 `json:"end_date"`

	ParticipationRequired *big.Int `json:"participation_required_pct"`
	SupportRequired       *big.Int `json:"support_required_pct"`
	VotingPower           uint64   `json:"voting_power"`

	Yea     uint64 `json:"yea"`
	Nay     uint64 `json:"nay"`
	Abstain uint64 `json:"abstain"`

	Voters map[common.Address]VoterState `json:"voters"`
}

// Clone returns a deep copy.
func (p *Proposal) Clone() *Proposal {
	c := *p
	c.Metadata = append(hexutil.Bytes{}, p.Metadata...)
	c.ParticipationRequired = cloneBig(p.ParticipationRequired)
	c.SupportRequired = cloneBig(p.SupportRequired)

	c.Actions = make([]Action, len(p.Actions))
	for i, a := range p.Actions {
		c.Actions[i] = a.clone()
	}

	c.Voters = make(map[common.Address]VoterState, len(p.Voters))
	for k, v := range p.Voters {
		c.Voters[k] = v
	}

	return &c
}

// isOpen reports whether votes are accepted at now.
func (p *Proposal) isOpen(now uint64) bool {
	return p.StartDate <= now && now < p.EndDate && !p.Executed
}

// ProposalView is a proposal as observed at a point in time.
type ProposalView struct {
	*Proposal
	Open bool `json:"open"`
}

// ProposalRequest carries the arguments of CreateProposal.
type ProposalRequest struct {
	Metadata         hexutil.Bytes `json:"metadata"`
	Actions          []Action      `json:"actions"`
	StartDate        uint64        `json:"start_date"`
	EndDate          uint64        `json:"end_date"`
	ExecuteIfDecided bool          `json:"execute_if_decided"`
	Choice           VoterState    `json:"choice"`
}

func cloneBig(b *big.Int) *big.Int {
	if b == nil {
		return nil
	}

	return new(big.Int).Set(b)
}
