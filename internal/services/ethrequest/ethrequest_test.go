package ethrequest

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/citizenwallet/governance/pkg/bridge"
	"github.com/citizenwallet/governance/pkg/chain"
	"github.com/citizenwallet/governance/pkg/govindex"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

var (
	_ bridge.EVMRequester   = (*EthService)(nil)
	_ chain.HeadReader      = (*EthService)(nil)
	_ govindex.EVMRequester = (*EthService)(nil)
)

// fakeEth answers the eth namespace calls the service makes
type fakeEth struct {
	nonces map[common.Address]uint64
}

func (f *fakeEth) ChainId() string {
	return "0x539"
}

func (f *fakeEth) GetTransactionCount(addr common.Address, block string) hexutil.Uint64 {
	return hexutil.Uint64(f.nonces[addr])
}

func newService(t *testing.T) *EthService {
	t.Helper()

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", &fakeEth{
		nonces: map[common.Address]uint64{common.HexToAddress("0x01"): 7},
	}))

	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	t.Cleanup(srv.Stop)

	e, err := NewEthService(context.Background(), hs.URL)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	return e
}

func TestChainID(t *testing.T) {
	e := newService(t)

	chid, err := e.ChainID()
	require.NoError(t, err)
	require.Equal(t, int64(1337), chid.Int64())
}

func TestNextNonce(t *testing.T) {
	e := newService(t)

	nonce, err := e.NextNonce(common.HexToAddress("0x01"))
	require.NoError(t, err)
	require.Equal(t, uint64(7), nonce)

	nonce, err = e.NextNonce(common.HexToAddress("0x02"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)
}

type badEth struct{}

func (badEth) ChainId() string {
	return "not hex"
}

func TestChainIDInvalid(t *testing.T) {
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", badEth{}))

	hs := httptest.NewServer(srv)
	defer hs.Close()
	defer srv.Stop()

	e, err := NewEthService(context.Background(), hs.URL)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.ChainID()
	require.Error(t, err)
}
