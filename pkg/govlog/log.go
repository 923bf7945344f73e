package govlog

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrMalformedLog = errors.New("malformed log")
)

// Action is the ABI shape of an organization action.
type Action struct {
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
	Data  []byte         `json:"data"`
}

type VoteStarted struct {
	VoteID   uint64
	Creator  common.Address
	Metadata []byte
}

type VoteCast struct {
	VoteID     uint64
	Voter      common.Address
	VoterState uint8
	Population *big.Int
}

type VoteExecuted struct {
	VoteID      uint64
	ExecResults [][]byte
}

type MembershipChanged struct {
	Member   common.Address
	Eligible bool
}

type ConfigUpdated struct {
	ParticipationRequiredPct *big.Int
	SupportRequiredPct       *big.Int
	MinDuration              uint64
}

type Executed struct {
	Actor       common.Address
	CallID      *big.Int
	Actions     []Action
	ExecResults [][]byte
}

type PluginRepoRegistered struct {
	Name       string
	PluginRepo common.Address
}

func NewVoteStarted(emitter common.Address, block, voteID uint64, creator common.Address, metadata []byte) (types.Log, error) {
	return newLog(emitter, block, EventVoteStarted, []interface{}{new(big.Int).SetUint64(voteID), creator}, metadata)
}

func NewVoteCast(emitter common.Address, block, voteID uint64, voter common.Address, state uint8, population uint64) (types.Log, error) {
	return newLog(emitter, block, EventVoteCast, []interface{}{new(big.Int).SetUint64(voteID), voter}, state, new(big.Int).SetUint64(population))
}

func NewVoteExecuted(emitter common.Address, block, voteID uint64, results [][]byte) (types.Log, error) {
	if results == nil {
		results = [][]byte{}
	}

	return newLog(emitter, block, EventVoteExecuted, []interface{}{new(big.Int).SetUint64(voteID)}, results)
}

func NewMembershipChanged(emitter common.Address, block uint64, member common.Address, eligible bool) (types.Log, error) {
	return newLog(emitter, block, EventMembershipChanged, []interface{}{member}, eligible)
}

func NewConfigUpdated(emitter common.Address, block uint64, participation, support *big.Int, minDuration uint64) (types.Log, error) {
	return newLog(emitter, block, EventConfigUpdated, nil, participation, support, minDuration)
}

func NewExecuted(emitter common.Address, block uint64, actor common.Address, callID *big.Int, actions []Action, results [][]byte) (types.Log, error) {
	if actions == nil {
		actions = []Action{}
	}

	if results == nil {
		results = [][]byte{}
	}

	return newLog(emitter, block, EventExecuted, []interface{}{actor}, callID, actions, results)
}

func NewPluginRepoRegistered(emitter common.Address, block uint64, name string, repo common.Address) (types.Log, error) {
	return newLog(emitter, block, EventPluginRepoRegistered, nil, name, repo)
}

func newLog(emitter common.Address, block uint64, name string, indexed []interface{}, data ...interface{}) (types.Log, error) {
	ev, ok := ABI.Events[name]
	if !ok {
		return types.Log{}, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}

	topics := []common.Hash{ev.ID}
	if len(indexed) > 0 {
		query := make([][]interface{}, 0, len(indexed))
		for _, v := range indexed {
			query = append(query, []interface{}{v})
		}

		t, err := abi.MakeTopics(query...)
		if err != nil {
			return types.Log{}, err
		}

		for _, tt := range t {
			topics = append(topics, tt[0])
		}
	}

	b, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return types.Log{}, fmt.Errorf("packing %s: %w", name, err)
	}

	return types.Log{
		Address:     emitter,
		Topics:      topics,
		Data:        b,
		BlockNumber: block,
	}, nil
}

// Decode unpacks a governance log into its typed event.
func Decode(l types.Log) (any, error) {
	if len(l.Topics) == 0 {
		return nil, ErrMalformedLog
	}

	ev, err := ABI.EventByID(l.Topics[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, l.Topics[0].Hex())
	}

	indexed := 0
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed++
		}
	}

	if len(l.Topics) != indexed+1 {
		return nil, fmt.Errorf("%w: %s expects %d topics, got %d", ErrMalformedLog, ev.Name, indexed+1, len(l.Topics))
	}

	out, err := ev.Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedLog, ev.Name, err)
	}

	switch ev.Name {
	case EventVoteStarted:
		return &VoteStarted{
			VoteID:   topicUint64(l.Topics[1]),
			Creator:  common.BytesToAddress(l.Topics[2].Bytes()),
			Metadata: out[0].([]byte),
		}, nil
	case EventVoteCast:
		return &VoteCast{
			VoteID:     topicUint64(l.Topics[1]),
			Voter:      common.BytesToAddress(l.Topics[2].Bytes()),
			VoterState: out[0].(uint8),
			Population: out[1].(*big.Int),
		}, nil
	case EventVoteExecuted:
		return &VoteExecuted{
			VoteID:      topicUint64(l.Topics[1]),
			ExecResults: out[0].([][]byte),
		}, nil
	case EventMembershipChanged:
		return &MembershipChanged{
			Member:   common.BytesToAddress(l.Topics[1].Bytes()),
			Eligible: out[0].(bool),
		}, nil
	case EventConfigUpdated:
		return &ConfigUpdated{
			ParticipationRequiredPct: out[0].(*big.Int),
			SupportRequiredPct:       out[1].(*big.Int),
			MinDuration:              out[2].(uint64),
		}, nil
	case EventExecuted:
		actions := *abi.ConvertType(out[1], new([]Action)).(*[]Action)
		return &Executed{
			Actor:       common.BytesToAddress(l.Topics[1].Bytes()),
			CallID:      out[0].(*big.Int),
			Actions:     actions,
			ExecResults: out[2].([][]byte),
		}, nil
	case EventPluginRepoRegistered:
		return &PluginRepoRegistered{
			Name:       out[0].(string),
			PluginRepo: out[1].(common.Address),
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name)
}

func topicUint64(h common.Hash) uint64 {
	return new(big.Int).SetBytes(h.Bytes()).Uint64()
}
