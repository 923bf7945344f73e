package common

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// SignatureHeader is the header that contains the signature of the request
	SignatureHeader = "X-Signature"
	// AddressHeader is the header that contains the address of the sender
	AddressHeader = "X-Address"
)

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignatureExpired = errors.New("signature expired")
)

type ContextKey string

const (
	ContextKeyAddress   ContextKey = AddressHeader
	ContextKeySignature ContextKey = SignatureHeader
)

// GetContextAddress returns the verified sender of a signed request
func GetContextAddress(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(ContextKeyAddress).(string)
	if !ok || !common.IsHexAddress(addr) {
		return common.Address{}, false
	}

	return common.HexToAddress(addr), true
}
