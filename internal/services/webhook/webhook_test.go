package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/citizenwallet/governance/pkg/govlog"
	"github.com/citizenwallet/governance/pkg/queue"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var engine = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func newServer(t *testing.T, status int) (*httptest.Server, *[]string) {
	received := []string{}

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var m Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))

		received = append(received, m.Content)
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)

	return s, &received
}

func TestMessager(t *testing.T) {
	s, received := newServer(t, http.StatusNoContent)

	m := NewMessager(s.URL, "testnet", true)
	require.NoError(t, m.Notify(context.Background(), "hello"))
	require.NoError(t, m.NotifyError(context.Background(), errors.New("boom")))
	require.NoError(t, m.NotifyWarning(context.Background(), errors.New("careful")))

	require.Equal(t, []string{"[testnet] hello", "[testnet] error: boom", "[testnet] warning: careful"}, *received)

	t.Run("disabled", func(t *testing.T) {
		m := NewMessager("http://127.0.0.1:0", "testnet", false)
		require.NoError(t, m.Notify(context.Background(), "ignored"))
	})

	t.Run("rate limited", func(t *testing.T) {
		s, _ := newServer(t, http.StatusTooManyRequests)

		err := NewMessager(s.URL, "testnet", true).Notify(context.Background(), "x")
		require.True(t, errors.Is(err, ErrSendingMessage))
		require.True(t, errors.Is(err, ErrRateLimited))
	})

	t.Run("long messages are split", func(t *testing.T) {
		s, received := newServer(t, http.StatusOK)

		line := strings.Repeat("a", 1500)
		m := NewMessager(s.URL, "testnet", true)
		require.NoError(t, m.Notify(context.Background(), line+"\n"+line))

		require.Equal(t, []string{"[testnet] " + line, line}, *received)
	})

	t.Run("bad status", func(t *testing.T) {
		s, _ := newServer(t, http.StatusBadRequest)

		m := NewMessager(s.URL, "testnet", true)
		require.True(t, errors.Is(m.Notify(context.Background(), "x"), ErrSendingMessage))
	})
}

func TestProcessor(t *testing.T) {
	s, received := newServer(t, http.StatusOK)
	p := NewProcessor(context.Background(), NewMessager(s.URL, "testnet", true))

	cast, err := govlog.NewVoteCast(engine, 3, 0, engine, 1, 10)
	require.NoError(t, err)

	executed, err := govlog.NewVoteExecuted(engine, 3, 0, nil)
	require.NoError(t, err)

	cfg, err := govlog.NewConfigUpdated(engine, 4, new(big.Int).Mul(big.NewInt(19), big.NewInt(1e16)), big.NewInt(29e16), 3600)
	require.NoError(t, err)

	require.NoError(t, p.Process(*queue.NewMessage([]types.Log{cast})))
	require.Empty(t, *received)

	require.NoError(t, p.Process(*queue.NewMessage([]types.Log{cast, executed})))
	require.NoError(t, p.Process(*queue.NewMessage([]types.Log{cfg})))

	require.Equal(t, []string{
		"[testnet] proposal 0 executed by " + engine.Hex() + " at block 3",
		"[testnet] " + engine.Hex() + " configuration: participation 19.00%, support 29.00%, min duration 3600s",
	}, *received)

	err = p.Process(*queue.NewMessage([]types.Log{{Topics: []common.Hash{{0x01}}}}))
	require.True(t, errors.Is(err, govlog.ErrUnknownEvent))
}

func TestSplit(t *testing.T) {
	require.Equal(t, []string{"abc"}, split("abc", 3))
	require.Equal(t, []string{"abc", "de"}, split("abcde", 3))
	require.Equal(t, []string{"ab", "cd"}, split("ab\ncd", 3))
	require.Equal(t, []string{"éé", "é"}, split("ééé", 2))
}
