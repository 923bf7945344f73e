package router

import (
	"crypto/ecdsa"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignedRequest is a body ready to be sent to a signed route together with
// its X-Signature header value
type SignedRequest struct {
	Body      []byte
	Signature string
}

// SignRequest wraps data in a signed body that expires after ttl
func SignRequest(key *ecdsa.PrivateKey, data []byte, ttl time.Duration) (*SignedRequest, error) {
	b, err := json.Marshal(signedBody{
		Data:     data,
		Encoding: BodyEncodingBase64,
		Expiry:   time.Now().Add(ttl).UTC().Unix(),
		Version:  signedBodyVersion,
	})
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(crypto.Keccak256(b), key)
	if err != nil {
		return nil, err
	}

	return &SignedRequest{Body: b, Signature: compactSignature(sig)}, nil
}

// compactSignature turns a go-ethereum [r || s || v] signature into the
// [v+27 || r || s] layout RecoverCompact expects
func compactSignature(sig []byte) string {
	rsig := make([]byte, 65)

	rsig[0] = sig[64] + 27
	copy(rsig[1:33], sig[0:32])
	copy(rsig[33:65], sig[32:64])

	return hexutil.Encode(rsig)
}
