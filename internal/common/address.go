package common

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress accepts a 0x prefixed hex address in any casing.
func ParseAddress(addr string) (common.Address, error) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, ErrInvalidAddress
	}

	return common.HexToAddress(addr), nil
}

// ParseAddresses parses every address, failing on the first invalid one.
func ParseAddresses(addrs []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(addrs))
	for _, a := range addrs {
		addr, err := ParseAddress(a)
		if err != nil {
			return nil, err
		}

		out = append(out, addr)
	}

	return out, nil
}
