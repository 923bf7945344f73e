package dao

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	MethodGrant  = "grant"
	MethodRevoke = "revoke"
)

const daoABI = `[
	{"type":"function","name":"grant","stateMutability":"nonpayable","inputs":[
		{"name":"where","type":"address"},
		{"name":"who","type":"address"},
		{"name":"permissionId","type":"bytes32"}
	],"outputs":[]},
	{"type":"function","name":"revoke","stateMutability":"nonpayable","inputs":[
		{"name":"where","type":"address"},
		{"name":"who","type":"address"},
		{"name":"permissionId","type":"bytes32"}
	],"outputs":[]}
]`

// ABI is the part of the organization interface reachable through actions.
var ABI = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(daoABI))
	if err != nil {
		panic(err)
	}

	return a
}()

// GrantCalldata encodes a grant call for an action targeting the organization.
func GrantCalldata(where, who common.Address, permissionID common.Hash) ([]byte, error) {
	return ABI.Pack(MethodGrant, where, who, [32]byte(permissionID))
}

// RevokeCalldata encodes a revoke call for an action targeting the organization.
func RevokeCalldata(where, who common.Address, permissionID common.Hash) ([]byte, error) {
	return ABI.Pack(MethodRevoke, where, who, [32]byte(permissionID))
}
