package acl

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	ModifyWhitelistPermission = "MODIFY_WHITELIST_PERMISSION"
	ModifyConfigPermission    = "MODIFY_VOTE_CONFIG"
	ExecutePermission         = "EXECUTE_PERMISSION"
	RegisterPermission        = "REGISTER_PERMISSION"
)

var (
	ErrUnauthorized = errors.New("unauthorized")

	ModifyWhitelistPermissionID = crypto.Keccak256Hash([]byte(ModifyWhitelistPermission))
	ModifyConfigPermissionID    = crypto.Keccak256Hash([]byte(ModifyConfigPermission))
	ExecutePermissionID         = crypto.Keccak256Hash([]byte(ExecutePermission))
	RegisterPermissionID        = crypto.Keccak256Hash([]byte(RegisterPermission))
)

// Authorizer answers whether who may perform permissionID on where.
type Authorizer interface {
	HasPermission(where, who common.Address, permissionID common.Hash) bool
}

// Check returns a wrapped ErrUnauthorized when the capability is missing.
func Check(a Authorizer, where, who common.Address, permissionID common.Hash) error {
	if a == nil || !a.HasPermission(where, who, permissionID) {
		return fmt.Errorf("%w: %s lacks %s on %s", ErrUnauthorized, who.Hex(), PermissionName(permissionID), where.Hex())
	}

	return nil
}

// PermissionName returns the role name for a known permission id, or its hex.
func PermissionName(id common.Hash) string {
	switch id {
	case ModifyWhitelistPermissionID:
		return ModifyWhitelistPermission
	case ModifyConfigPermissionID:
		return ModifyConfigPermission
	case ExecutePermissionID:
		return ExecutePermission
	case RegisterPermissionID:
		return RegisterPermission
	}

	return id.Hex()
}
