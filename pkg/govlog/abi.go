package govlog

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	EventVoteStarted          = "VoteStarted"
	EventVoteCast             = "VoteCast"
	EventVoteExecuted         = "VoteExecuted"
	EventMembershipChanged    = "MembershipChanged"
	EventConfigUpdated        = "ConfigUpdated"
	EventExecuted             = "Executed"
	EventPluginRepoRegistered = "PluginRepoRegistered"

	MethodExecute = "execute"
)

// GovernanceABI describes every log emitted by the engine, the organization
// and the plugin registry, plus the organization's execute entrypoint.
const GovernanceABI = `[
	{"type":"event","name":"VoteStarted","anonymous":false,"inputs":[
		{"indexed":true,"name":"voteId","type":"uint256"},
		{"indexed":true,"name":"creator","type":"address"},
		{"indexed":false,"name":"metadata","type":"bytes"}]},
	{"type":"event","name":"VoteCast","anonymous":false,"inputs":[
		{"indexed":true,"name":"voteId","type":"uint256"},
		{"indexed":true,"name":"voter","type":"address"},
		{"indexed":false,"name":"voterState","type":"uint8"},
		{"indexed":false,"name":"population","type":"uint256"}]},
	{"type":"event","name":"VoteExecuted","anonymous":false,"inputs":[
		{"indexed":true,"name":"voteId","type":"uint256"},
		{"indexed":false,"name":"execResults","type":"bytes[]"}]},
	{"type":"event","name":"MembershipChanged","anonymous":false,"inputs":[
		{"indexed":true,"name":"member","type":"address"},
		{"indexed":false,"name":"eligible","type":"bool"}]},
	{"type":"event","name":"ConfigUpdated","anonymous":false,"inputs":[
		{"indexed":false,"name":"participationRequiredPct","type":"uint256"},
		{"indexed":false,"name":"supportRequiredPct","type":"uint256"},
		{"indexed":false,"name":"minDuration","type":"uint64"}]},
	{"type":"event","name":"Executed","anonymous":false,"inputs":[
		{"indexed":true,"name":"actor","type":"address"},
		{"indexed":false,"name":"callId","type":"uint256"},
		{"indexed":false,"name":"actions","type":"tuple[]","components":[
			{"name":"to","type":"address"},
			{"name":"value","type":"uint256"},
			{"name":"data","type":"bytes"}]},
		{"indexed":false,"name":"execResults","type":"bytes[]"}]},
	{"type":"event","name":"PluginRepoRegistered","anonymous":false,"inputs":[
		{"indexed":false,"name":"name","type":"string"},
		{"indexed":false,"name":"pluginRepo","type":"address"}]},
	{"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[
		{"name":"callId","type":"uint256"},
		{"name":"actions","type":"tuple[]","components":[
			{"name":"to","type":"address"},
			{"name":"value","type":"uint256"},
			{"name":"data","type":"bytes"}]}],
	 "outputs":[{"name":"","type":"bytes[]"}]}
]`

var ABI = mustParseABI(GovernanceABI)

var (
	VoteStartedID          = ABI.Events[EventVoteStarted].ID
	VoteCastID             = ABI.Events[EventVoteCast].ID
	VoteExecutedID         = ABI.Events[EventVoteExecuted].ID
	MembershipChangedID    = ABI.Events[EventMembershipChanged].ID
	ConfigUpdatedID        = ABI.Events[EventConfigUpdated].ID
	ExecutedID             = ABI.Events[EventExecuted].ID
	PluginRepoRegisteredID = ABI.Events[EventPluginRepoRegistered].ID
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}

	return parsed
}

// Topics returns the filter topics for every governance event, ready for
// an ethereum.FilterQuery.
func Topics() [][]common.Hash {
	return [][]common.Hash{
		{
			VoteStartedID,
			VoteCastID,
			VoteExecutedID,
			MembershipChangedID,
			ConfigUpdatedID,
			ExecutedID,
			PluginRepoRegisteredID,
		},
	}
}

// EventName returns the event name for a topic id, or "" when unknown.
func EventName(id common.Hash) string {
	ev, err := ABI.EventByID(id)
	if err != nil {
		return ""
	}

	return ev.Name
}
