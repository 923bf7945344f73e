package voting

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/ethereum/go-ethereum/common"
)

// CreateProposal opens a vote on req.Actions. The caller must be whitelisted
// now. Eligibility and voting power are frozen at the block before the
// current one. A non-None req.Choice is cast for the caller right away.
func (e *Engine) CreateProposal(caller common.Address, req ProposalRequest) (_ uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return 0, ErrNotInitialized
	}

	if !req.Choice.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidVoterState, uint8(req.Choice))
	}

	if !e.registry.IsEligible(caller) {
		return 0, fmt.Errorf("%w: %s is not whitelisted", ErrCreationForbidden, caller.Hex())
	}

	o := e.begin()
	defer o.rollbackOn(&err)

	start := req.StartDate
	if start == 0 {
		start = o.now
	} else if start < o.now {
		return 0, fmt.Errorf("%w: start %d is before %d", ErrTimesForbidden, start, o.now)
	}

	end := req.EndDate
	if end == 0 {
		if start > math.MaxUint64-e.config.MinDuration {
			return 0, fmt.Errorf("%w: start %d leaves no room for %ds", ErrTimesForbidden, start, e.config.MinDuration)
		}

		end = start + e.config.MinDuration
	} else if end <= start || end-start < e.config.MinDuration {
		return 0, fmt.Errorf("%w: %d to %d is shorter than %ds", ErrTimesForbidden, start, end, e.config.MinDuration)
	}

	snapshot := uint64(0)
	if o.block > 0 {
		snapshot = o.block - 1
	}

	actions := make([]Action, len(req.Actions))
	for i, a := range req.Actions {
		actions[i] = a.clone()
	}

	id, err := e.store.NextID()
	if err != nil {
		return 0, err
	}

	p := &Proposal{
		ID:                    id,
		Creator:               caller,
		Metadata:              append([]byte{}, req.Metadata...),
		Actions:               actions,
		SnapshotBlock:         snapshot,
		StartDate:             start,
		EndDate:               end,
		ParticipationRequired: cloneBig(e.config.ParticipationRequired),
		SupportRequired:       cloneBig(e.config.SupportRequired),
		VotingPower:           e.registry.PopulationAt(snapshot),
		Voters:                map[common.Address]VoterState{},
	}

	if err := o.record(govlog.NewVoteStarted(e.address, o.block, p.ID, caller, p.Metadata)); err != nil {
		return 0, err
	}

	if req.Choice != VoterStateNone {
		if err := e.vote(o, p, caller, req.Choice, req.ExecuteIfDecided); err != nil {
			return 0, err
		}
	}

	if err := e.store.Insert(p); err != nil {
		return 0, err
	}

	e.commit(o)

	log.Default().Printf("proposal %d created by %s, voting until %d\n", p.ID, caller.Hex(), p.EndDate)

	return p.ID, nil
}

// Vote records choice for voter, replacing any earlier choice. A None
// choice withdraws the vote. Voting on an unknown proposal is a forbidden
// cast.
func (e *Engine) Vote(voter common.Address, id uint64, choice VoterState, executeIfDecided bool) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !choice.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidVoterState, uint8(choice))
	}

	p, err := e.store.Get(id)
	if errors.Is(err, ErrProposalNotFound) {
		return fmt.Errorf("%w: %w", ErrVoteCastForbidden, err)
	}

	if err != nil {
		return err
	}

	o := e.begin()
	defer o.rollbackOn(&err)

	if err := e.vote(o, p, voter, choice, executeIfDecided); err != nil {
		return err
	}

	if err := e.store.Update(p); err != nil {
		return err
	}

	e.commit(o)

	return nil
}

// Execute runs the actions of a passed proposal through the executor. Any
// address may trigger it.
func (e *Engine) Execute(id uint64) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.Get(id)
	if err != nil {
		return err
	}

	o := e.begin()
	defer o.rollbackOn(&err)

	if !canExecute(p, o.now) {
		return fmt.Errorf("%w: proposal %d", ErrExecutionForbidden, id)
	}

	if err := e.execute(o, p); err != nil {
		return err
	}

	if err := e.store.Update(p); err != nil {
		return err
	}

	e.commit(o)

	return nil
}

func (e *Engine) vote(o *op, p *Proposal, voter common.Address, choice VoterState, executeIfDecided bool) error {
	if !e.canVote(p, voter, o.now) {
		return fmt.Errorf("%w: %s on proposal %d", ErrVoteCastForbidden, voter.Hex(), p.ID)
	}

	switch p.Voters[voter] {
	case VoterStateYea:
		p.Yea--
	case VoterStateNay:
		p.Nay--
	case VoterStateAbstain:
		p.Abstain--
	}

	switch choice {
	case VoterStateYea:
		p.Yea++
	case VoterStateNay:
		p.Nay++
	case VoterStateAbstain:
		p.Abstain++
	}

	if choice == VoterStateNone {
		delete(p.Voters, voter)
	} else {
		p.Voters[voter] = choice
	}

	if err := o.record(govlog.NewVoteCast(e.address, o.block, p.ID, voter, uint8(choice), e.registry.Population())); err != nil {
		return err
	}

	if executeIfDecided && canExecute(p, o.now) {
		return e.execute(o, p)
	}

	return nil
}

func (e *Engine) execute(o *op, p *Proposal) error {
	if e.executor == nil {
		return fmt.Errorf("%w: proposal %d: no executor", ErrExecutionFailed, p.ID)
	}

	e.running.Store(o)
	ex, err := e.executor.Execute(e.address, p.ID, p.Actions)
	e.running.Store(nil)

	if err != nil {
		log.Default().Printf("proposal %d execution failed: %v\n", p.ID, err)
		return fmt.Errorf("%w: proposal %d: %w", ErrExecutionFailed, p.ID, err)
	}

	o.onAbort(ex.Revert)

	p.Executed = true

	// the executor's logs land between the vote and its VoteExecuted
	o.logs = append(o.logs, ex.Logs...)

	if err := o.record(govlog.NewVoteExecuted(e.address, o.block, p.ID, ex.Results)); err != nil {
		return err
	}

	log.Default().Printf("proposal %d executed with %d actions\n", p.ID, len(p.Actions))

	return nil
}

func (e *Engine) canVote(p *Proposal, voter common.Address, now uint64) bool {
	return p.isOpen(now) && e.registry.EligibleAt(voter, p.SnapshotBlock)
}

// canExecute passes early once yea alone exceeds support of the voting
// power. Otherwise the vote must be closed with both participation and
// support of the cast yea and nay votes exceeded.
func canExecute(p *Proposal, now uint64) bool {
	if p.Executed {
		return false
	}

	if isValuePct(p.Yea, p.VotingPower, p.SupportRequired) {
		return true
	}

	if p.isOpen(now) {
		return false
	}

	if !isValuePct(p.Yea+p.Nay+p.Abstain, p.VotingPower, p.ParticipationRequired) {
		return false
	}

	return isValuePct(p.Yea, p.Yea+p.Nay, p.SupportRequired)
}

// CanVote reports whether voter may vote on proposal id right now.
func (e *Engine) CanVote(id uint64, voter common.Address) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.Get(id)
	if err != nil {
		return false, err
	}

	return e.canVote(p, voter, e.clock.Timestamp()), nil
}

func (e *Engine) CanExecute(id uint64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.Get(id)
	if err != nil {
		return false, err
	}

	return canExecute(p, e.clock.Timestamp()), nil
}

func (e *Engine) VoterState(id uint64, voter common.Address) (VoterState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.Get(id)
	if err != nil {
		return VoterStateNone, err
	}

	return p.Voters[voter], nil
}

func (e *Engine) Proposal(id uint64) (*ProposalView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}

	return &ProposalView{Proposal: p, Open: p.isOpen(e.clock.Timestamp())}, nil
}

func (e *Engine) Proposals(offset, limit int) ([]*ProposalView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.store.List(offset, limit)
	if err != nil {
		return nil, err
	}

	now := e.clock.Timestamp()

	out := make([]*ProposalView, 0, len(ps))
	for _, p := range ps {
		out = append(out, &ProposalView{Proposal: p, Open: p.isOpen(now)})
	}

	return out, nil
}

func (e *Engine) ProposalCount() (int, error) {
	return e.store.Count()
}
