//go:build db_test
// +build db_test

package govdb

import (
	"context"
	"math/big"
	"testing"

	"github.com/citizenwallet/governance/internal/config"
	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/citizenwallet/governance/pkg/queue"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestLogMirror(t *testing.T) {
	conf, err := config.NewDBConfig(context.Background(), "")
	require.NoError(t, err)

	gdb, err := NewDB(big.NewInt(1337), conf.ConnString(), "")
	require.NoError(t, err)

	gdb.SetTesting()
	defer gdb.Close()

	engine := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	last, err := gdb.LogDB.LastIndex()
	require.NoError(t, err)
	require.Equal(t, int64(-1), last)

	j := govlog.NewJournal()
	a, err := govlog.NewMembershipChanged(engine, 1, engine, true)
	require.NoError(t, err)
	b, err := govlog.NewVoteExecuted(engine, 2, 0, nil)
	require.NoError(t, err)
	j.Emit(a, b)

	require.NoError(t, gdb.LogDB.Process(*queue.NewMessage(j.Since(0, 10))))
	require.NoError(t, gdb.LogDB.Process(*queue.NewMessage(j.Since(0, 10))))

	last, err = gdb.LogDB.LastIndex()
	require.NoError(t, err)
	require.Equal(t, int64(1), last)

	logs, err := gdb.LogDB.GetLogs(engine, "", 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, govlog.EventMembershipChanged, logs[0].Event)
	require.Len(t, logs[0].Topics, 2)

	logs, err = gdb.LogDB.GetLogs(engine, govlog.EventVoteExecuted, 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, uint64(2), logs[0].BlockNumber)
}
