package dao

import (
	"errors"
	"math/big"
	"testing"

	"github.com/citizenwallet/governance/pkg/acl"
	"github.com/citizenwallet/governance/pkg/chain"
	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	daoAddr    = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	pluginAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice      = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob        = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type failingTarget struct {
	calls int
}

func (f *failingTarget) Call(caller common.Address, value *big.Int, data []byte) (*Outcome, error) {
	f.calls++
	return nil, errors.New("reverted")
}

type echoTarget struct {
	applied int
}

func (e *echoTarget) Call(caller common.Address, value *big.Int, data []byte) (*Outcome, error) {
	e.applied++

	l, err := govlog.NewMembershipChanged(bob, 0, caller, true)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Output: data,
		Logs:   []types.Log{l},
		Undo:   func() { e.applied-- },
	}, nil
}

func newDAO(t *testing.T) (*DAO, *govlog.Journal) {
	j := govlog.NewJournal()
	d := New(daoAddr, chain.NewDev(7, 100), j)
	d.Grant(daoAddr, pluginAddr, acl.ExecutePermissionID)

	return d, j
}

func TestPermissions(t *testing.T) {
	d, _ := newDAO(t)

	require.False(t, d.HasPermission(pluginAddr, alice, acl.ModifyWhitelistPermissionID))
	require.True(t, d.Grant(pluginAddr, alice, acl.ModifyWhitelistPermissionID))
	require.False(t, d.Grant(pluginAddr, alice, acl.ModifyWhitelistPermissionID))
	require.True(t, d.HasPermission(pluginAddr, alice, acl.ModifyWhitelistPermissionID))
	require.False(t, d.HasPermission(daoAddr, alice, acl.ModifyWhitelistPermissionID))

	require.True(t, d.Revoke(pluginAddr, alice, acl.ModifyWhitelistPermissionID))
	require.False(t, d.Revoke(pluginAddr, alice, acl.ModifyWhitelistPermissionID))
	require.False(t, d.HasPermission(pluginAddr, alice, acl.ModifyWhitelistPermissionID))
}

func TestExecute(t *testing.T) {
	t.Run("needs permission", func(t *testing.T) {
		d, j := newDAO(t)

		_, err := d.Run(alice, 0, nil)
		require.True(t, errors.Is(err, acl.ErrUnauthorized))
		require.Equal(t, 0, j.Len())
	})

	t.Run("empty batch", func(t *testing.T) {
		d, j := newDAO(t)

		results, err := d.Run(pluginAddr, 3, nil)
		require.NoError(t, err)
		require.Empty(t, results)
		require.Equal(t, 1, j.Len())
	})

	t.Run("grant and transfer", func(t *testing.T) {
		d, j := newDAO(t)
		d.Deposit(big.NewInt(10))

		grant, err := GrantCalldata(pluginAddr, alice, acl.ModifyConfigPermissionID)
		require.NoError(t, err)

		actions := []voting.Action{
			{To: daoAddr, Value: big.NewInt(0), Data: grant},
			{To: bob, Value: big.NewInt(4), Data: []byte{0xca, 0xfe}},
		}

		results, err := d.Run(pluginAddr, 5, actions)
		require.NoError(t, err)
		require.Equal(t, [][]byte{{}, {}}, results)

		require.True(t, d.HasPermission(pluginAddr, alice, acl.ModifyConfigPermissionID))
		require.Equal(t, int64(6), d.Balance(daoAddr).Int64())
		require.Equal(t, int64(4), d.Balance(bob).Int64())

		logs := j.Filter(daoAddr, govlog.ExecutedID)
		require.Len(t, logs, 1)
		require.Equal(t, uint64(7), logs[0].BlockNumber)

		ev, err := govlog.Decode(logs[0])
		require.NoError(t, err)

		ex := ev.(*govlog.Executed)
		require.Equal(t, pluginAddr, ex.Actor)
		require.Equal(t, int64(5), ex.CallID.Int64())
		require.Len(t, ex.Actions, 2)
		require.Equal(t, bob, ex.Actions[1].To)
	})

	t.Run("failure rolls back earlier actions", func(t *testing.T) {
		d, j := newDAO(t)
		d.Deposit(big.NewInt(3))

		echo := &echoTarget{}
		d.SetTarget(alice, echo)

		grant, err := GrantCalldata(pluginAddr, bob, acl.ModifyWhitelistPermissionID)
		require.NoError(t, err)

		actions := []voting.Action{
			{To: daoAddr, Data: grant},
			{To: alice, Value: big.NewInt(1), Data: []byte{0x01}},
			{To: bob, Value: big.NewInt(5)},
		}

		_, err = d.Run(pluginAddr, 0, actions)
		require.True(t, errors.Is(err, ErrActionFailed))
		require.True(t, errors.Is(err, ErrInsufficientBalance))

		require.False(t, d.HasPermission(pluginAddr, bob, acl.ModifyWhitelistPermissionID))
		require.Equal(t, int64(3), d.Balance(daoAddr).Int64())
		require.Equal(t, int64(0), d.Balance(alice).Int64())
		require.Equal(t, 0, echo.applied)
		require.Equal(t, 0, j.Len())
	})

	t.Run("target logs precede Executed", func(t *testing.T) {
		d, j := newDAO(t)
		d.SetTarget(alice, &echoTarget{})

		results, err := d.Run(pluginAddr, 1, []voting.Action{{To: alice, Data: []byte{0x02}}})
		require.NoError(t, err)
		require.Equal(t, [][]byte{{0x02}}, results)

		logs := j.Since(0, 10)
		require.Len(t, logs, 2)
		require.Equal(t, govlog.MembershipChangedID, logs[0].Topics[0])
		require.Equal(t, govlog.ExecutedID, logs[1].Topics[0])
	})

	t.Run("failing target", func(t *testing.T) {
		d, _ := newDAO(t)
		d.Deposit(big.NewInt(1))

		f := &failingTarget{}
		d.SetTarget(alice, f)

		_, err := d.Run(pluginAddr, 0, []voting.Action{{To: alice, Value: big.NewInt(1)}})
		require.True(t, errors.Is(err, ErrActionFailed))
		require.Equal(t, 1, f.calls)
		require.Equal(t, int64(1), d.Balance(daoAddr).Int64())
	})

	t.Run("execute leaves publishing to the caller", func(t *testing.T) {
		d, j := newDAO(t)
		d.Deposit(big.NewInt(2))

		echo := &echoTarget{}
		d.SetTarget(alice, echo)

		ex, err := d.Execute(pluginAddr, 4, []voting.Action{{To: alice, Value: big.NewInt(2), Data: []byte{0x03}}})
		require.NoError(t, err)
		require.Equal(t, 0, j.Len())
		require.Len(t, ex.Logs, 2)
		require.Equal(t, govlog.ExecutedID, ex.Logs[1].Topics[0])
		require.Equal(t, int64(2), d.Balance(alice).Int64())

		ex.Revert()
		require.Equal(t, 0, echo.applied)
		require.Equal(t, int64(0), d.Balance(alice).Int64())
		require.Equal(t, int64(2), d.Balance(daoAddr).Int64())
	})

	t.Run("unknown self call", func(t *testing.T) {
		d, _ := newDAO(t)

		_, err := d.Run(pluginAddr, 0, []voting.Action{{To: daoAddr, Data: []byte{1, 2, 3, 4}}})
		require.True(t, errors.Is(err, ErrUnknownMethod))

		_, err = d.Run(pluginAddr, 0, []voting.Action{{To: daoAddr, Data: []byte{1}}})
		require.True(t, errors.Is(err, ErrUnknownMethod))
	})
}

func TestGovernedByEngine(t *testing.T) {
	dev := chain.NewDev(0, 1000)
	j := govlog.NewJournal()

	d := New(daoAddr, dev, j)
	d.Grant(daoAddr, pluginAddr, acl.ExecutePermissionID)
	d.Grant(pluginAddr, daoAddr, acl.ModifyWhitelistPermissionID)

	engine := voting.New(pluginAddr, dev, d, d, nil, j)
	require.NoError(t, engine.Initialize(voting.Configuration{
		ParticipationRequired: voting.Pct(0),
		SupportRequired:       voting.Pct(50),
		MinDuration:           60,
	}, []common.Address{alice, bob}))

	err := engine.AddAddresses(alice, []common.Address{alice})
	require.True(t, errors.Is(err, acl.ErrUnauthorized))

	grant, err := GrantCalldata(pluginAddr, alice, acl.ModifyWhitelistPermissionID)
	require.NoError(t, err)

	id, err := engine.CreateProposal(alice, voting.ProposalRequest{
		Actions: []voting.Action{{To: daoAddr, Value: big.NewInt(0), Data: grant}},
		Choice:  voting.VoterStateYea,
	})
	require.NoError(t, err)

	ok, err := engine.CanExecute(id)
	require.NoError(t, err)
	require.False(t, ok, "1 of 2 is not above 50%")

	require.NoError(t, engine.Vote(bob, id, voting.VoterStateYea, true))

	p, err := engine.Proposal(id)
	require.NoError(t, err)
	require.True(t, p.Executed)

	require.NoError(t, engine.AddAddresses(alice, []common.Address{common.HexToAddress("0x01")}))
	require.Equal(t, uint64(3), engine.Population())

	require.Len(t, j.Filter(daoAddr, govlog.ExecutedID), 1)
	require.Len(t, j.Filter(pluginAddr, govlog.VoteExecutedID), 1)
}

func TestEngineTarget(t *testing.T) {
	dev := chain.NewDev(0, 1000)
	j := govlog.NewJournal()

	d := New(daoAddr, dev, j)
	d.Grant(daoAddr, pluginAddr, acl.ExecutePermissionID)
	d.Grant(pluginAddr, daoAddr, acl.ModifyWhitelistPermissionID)
	d.Grant(pluginAddr, daoAddr, acl.ModifyConfigPermissionID)

	engine := voting.New(pluginAddr, dev, d, d, nil, j)
	d.SetTarget(pluginAddr, EngineTarget{Engine: engine})

	require.NoError(t, engine.Initialize(voting.Configuration{
		ParticipationRequired: voting.Pct(0),
		SupportRequired:       voting.Pct(40),
		MinDuration:           60,
	}, []common.Address{alice, bob}))

	carol := common.HexToAddress("0x0000000000000000000000000000000000000c0c")

	add, err := voting.AddAddressesCalldata([]common.Address{carol, alice})
	require.NoError(t, err)

	setCfg, err := voting.SetConfigurationCalldata(voting.Configuration{
		ParticipationRequired: voting.Pct(10),
		SupportRequired:       voting.Pct(60),
		MinDuration:           120,
	})
	require.NoError(t, err)

	start := j.Len()

	// 1 of 2 yea is above 40%, so creation executes right away
	id, err := engine.CreateProposal(alice, voting.ProposalRequest{
		Actions:          []voting.Action{{To: pluginAddr, Data: add}, {To: pluginAddr, Data: setCfg}},
		Choice:           voting.VoterStateYea,
		ExecuteIfDecided: true,
	})
	require.NoError(t, err)

	p, err := engine.Proposal(id)
	require.NoError(t, err)
	require.True(t, p.Executed)

	require.Equal(t, uint64(3), engine.Population())
	require.Equal(t, 0, engine.Configuration().SupportRequired.Cmp(voting.Pct(60)))
	require.Equal(t, uint64(120), engine.Configuration().MinDuration)

	logs := j.Since(uint(start), 100)
	topics := make([]common.Hash, len(logs))
	for i, l := range logs {
		topics[i] = l.Topics[0]
		require.Equal(t, logs[0].BlockNumber, l.BlockNumber)
	}

	require.Equal(t, []common.Hash{
		govlog.VoteStartedID,
		govlog.VoteCastID,
		govlog.MembershipChangedID,
		govlog.MembershipChangedID,
		govlog.ConfigUpdatedID,
		govlog.ExecutedID,
		govlog.VoteExecutedID,
	}, topics)

	restored := voting.New(pluginAddr, dev, d, d, nil, nil)
	require.NoError(t, restored.Restore(j.Since(0, 100)))
	require.Equal(t, engine.Members(), restored.Members())
	require.Equal(t, engine.MemberHistory(alice), restored.MemberHistory(alice))
	require.Equal(t, 0, restored.Configuration().SupportRequired.Cmp(voting.Pct(60)))

	t.Run("failed batch leaves the engine untouched", func(t *testing.T) {
		dave := common.HexToAddress("0x0000000000000000000000000000000000000d0d")

		add, err := voting.AddAddressesCalldata([]common.Address{dave})
		require.NoError(t, err)

		id, err := engine.CreateProposal(alice, voting.ProposalRequest{
			Actions: []voting.Action{{To: pluginAddr, Data: add}, {To: bob, Value: big.NewInt(1)}},
			Choice:  voting.VoterStateYea,
		})
		require.NoError(t, err)
		require.NoError(t, engine.Vote(bob, id, voting.VoterStateYea, false))

		before := j.Len()

		err = engine.Execute(id)
		require.True(t, errors.Is(err, voting.ErrExecutionFailed))
		require.True(t, errors.Is(err, ErrInsufficientBalance))

		require.False(t, engine.IsEligibleAt(dave, 0))
		require.Equal(t, uint64(3), engine.Population())
		require.Empty(t, engine.MemberHistory(dave))
		require.Equal(t, before, j.Len())
	})

	t.Run("only while executing a proposal", func(t *testing.T) {
		_, _, err := engine.Call(daoAddr, add)
		require.True(t, errors.Is(err, voting.ErrNotExecuting))

		_, err = d.Run(pluginAddr, 9, []voting.Action{{To: pluginAddr, Data: add}})
		require.True(t, errors.Is(err, ErrActionFailed))
		require.True(t, errors.Is(err, voting.ErrNotExecuting))
	})

	t.Run("needs the permission", func(t *testing.T) {
		d.Revoke(pluginAddr, daoAddr, acl.ModifyConfigPermissionID)

		id, err := engine.CreateProposal(alice, voting.ProposalRequest{
			Actions: []voting.Action{{To: pluginAddr, Data: setCfg}},
			Choice:  voting.VoterStateYea,
		})
		require.NoError(t, err)
		require.NoError(t, engine.Vote(bob, id, voting.VoterStateYea, false))

		err = engine.Execute(id)
		require.True(t, errors.Is(err, acl.ErrUnauthorized))
	})
}

func TestRestore(t *testing.T) {
	d, j := newDAO(t)

	grant, err := GrantCalldata(pluginAddr, alice, acl.ModifyConfigPermissionID)
	require.NoError(t, err)

	revoke, err := RevokeCalldata(daoAddr, pluginAddr, acl.ExecutePermissionID)
	require.NoError(t, err)

	_, err = d.Run(pluginAddr, 0, []voting.Action{{To: daoAddr, Data: grant}, {To: bob}})
	require.NoError(t, err)

	_, err = d.Run(pluginAddr, 1, []voting.Action{{To: daoAddr, Data: revoke}})
	require.NoError(t, err)

	restored := New(daoAddr, chain.NewDev(0, 0), nil)
	restored.Grant(daoAddr, pluginAddr, acl.ExecutePermissionID)

	require.NoError(t, restored.Restore(j.Since(0, 10)))
	require.True(t, restored.HasPermission(pluginAddr, alice, acl.ModifyConfigPermissionID))
	require.False(t, restored.HasPermission(daoAddr, pluginAddr, acl.ExecutePermissionID))
}
