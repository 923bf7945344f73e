package common

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HexToPrivateKey parses a hex encoded private key, with or without 0x
func HexToPrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	privateKeyBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, err
	}

	privateKey, err := crypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, err
	}

	return privateKey, nil
}

// GenerateHexPrivateKey generates a new private key and returns it hex
// encoded together with its address
func GenerateHexPrivateKey() (string, common.Address, error) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return "", common.Address{}, err
	}

	return hex.EncodeToString(crypto.FromECDSA(pk)), crypto.PubkeyToAddress(pk.PublicKey), nil
}
