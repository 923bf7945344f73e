package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const signedBodyVersion = 2

type BodyEncoding string

const (
	BodyEncodingBase64 BodyEncoding = "base64"
)

// signedBody wraps the payload of every governance write. The signature
// covers the keccak256 of the whole json encoded envelope.
type signedBody struct {
	Data     []byte       `json:"data"`
	Encoding BodyEncoding `json:"encoding"`
	Expiry   int64        `json:"expiry"`
	Version  int          `json:"version"`
}

// withSignature authenticates the sender of a write. The handler receives
// the unwrapped payload as its body and the signer as the context address,
// which the governance operations use as their caller.
func withSignature(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signature := r.Header.Get(com.SignatureHeader)
		if signature == "" {
			com.ErrorBody(w, com.ErrMissingSignature)
			return
		}

		addr, err := com.ParseAddress(r.Header.Get(com.AddressHeader))
		if err != nil {
			com.ErrorStatus(w, http.StatusUnauthorized, err)
			return
		}

		var req signedBody
		err = json.NewDecoder(r.Body).Decode(&req)
		r.Body.Close()
		if err != nil {
			com.ErrorStatus(w, http.StatusBadRequest, err)
			return
		}

		if err := verifySignedBody(req, addr, signature, time.Now()); err != nil {
			com.ErrorBody(w, err)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(req.Data))
		r.ContentLength = int64(len(req.Data))

		ctx := context.WithValue(r.Context(), com.ContextKeyAddress, addr.Hex())
		ctx = context.WithValue(ctx, com.ContextKeySignature, signature)

		h(w, r.WithContext(ctx))
	}
}

// verifySignedBody checks that addr signed req and that it has not expired
// at now.
func verifySignedBody(req signedBody, addr common.Address, signature string, now time.Time) error {
	if req.Version != signedBodyVersion {
		return fmt.Errorf("%w: version %d", com.ErrInvalidSignature, req.Version)
	}

	if req.Expiry < now.UTC().Unix() {
		return com.ErrSignatureExpired
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != 65 {
		return fmt.Errorf("%w: malformed", com.ErrInvalidSignature)
	}

	b, err := json.Marshal(req)
	if err != nil {
		return err
	}

	h := crypto.Keccak256(b)

	pubkey, _, err := ecdsa.RecoverCompact(sig, h)
	if err != nil {
		return fmt.Errorf("%w: %s", com.ErrInvalidSignature, err.Error())
	}

	if signer := crypto.PubkeyToAddress(*pubkey.ToECDSA()); signer != addr {
		return fmt.Errorf("%w: signed by %s", com.ErrInvalidSignature, signer.Hex())
	}

	var sr, ss secp256k1.ModNScalar
	sr.SetByteSlice(sig[1:33])
	ss.SetByteSlice(sig[33:65])

	if !ecdsa.NewSignature(&sr, &ss).Verify(h, pubkey) {
		return com.ErrInvalidSignature
	}

	return nil
}
