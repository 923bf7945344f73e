package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, body signedBody) string {
	t.Helper()

	k, err := crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)

	b, err := json.Marshal(body)
	require.NoError(t, err)

	sig, err := crypto.Sign(crypto.Keccak256(b), k)
	require.NoError(t, err)

	return compactSignature(sig)
}

func TestVerifySignedBody(t *testing.T) {
	signer := common.HexToAddress("0x71562b71999873DB5b286dF957af199Ec94617F7")
	now := time.Unix(1700000000, 0)

	body := signedBody{
		Data:     []byte(`{"choice":"yea"}`),
		Encoding: BodyEncodingBase64,
		Expiry:   now.Add(time.Minute).Unix(),
		Version:  signedBodyVersion,
	}
	sig := sign(t, body)

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, verifySignedBody(body, signer, sig, now))
	})

	t.Run("other signer", func(t *testing.T) {
		err := verifySignedBody(body, common.HexToAddress("0x01"), sig, now)
		require.True(t, errors.Is(err, com.ErrInvalidSignature))
	})

	t.Run("tampered data", func(t *testing.T) {
		tampered := body
		tampered.Data = []byte(`{"choice":"nay"}`)

		err := verifySignedBody(tampered, signer, sig, now)
		require.True(t, errors.Is(err, com.ErrInvalidSignature))
	})

	t.Run("expired", func(t *testing.T) {
		err := verifySignedBody(body, signer, sig, now.Add(2*time.Minute))
		require.True(t, errors.Is(err, com.ErrSignatureExpired))
	})

	t.Run("wrong version", func(t *testing.T) {
		old := body
		old.Version = 1

		err := verifySignedBody(old, signer, sign(t, old), now)
		require.True(t, errors.Is(err, com.ErrInvalidSignature))
	})

	t.Run("malformed signature", func(t *testing.T) {
		for _, s := range []string{"0x1234", "nothex", ""} {
			err := verifySignedBody(body, signer, s, now)
			require.True(t, errors.Is(err, com.ErrInvalidSignature), s)
		}
	})
}

func TestWithSignature(t *testing.T) {
	k, err := crypto.GenerateKey()
	require.NoError(t, err)

	addr := crypto.PubkeyToAddress(k.PublicKey)

	var got common.Address
	var gotBody string
	h := withSignature(func(w http.ResponseWriter, r *http.Request) {
		got, _ = com.GetContextAddress(r.Context())

		var b bytes.Buffer
		_, err := b.ReadFrom(r.Body)
		require.NoError(t, err)
		gotBody = b.String()

		w.WriteHeader(http.StatusOK)
	})

	req, err := SignRequest(k, []byte(`{"hello":"world"}`), time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    string
		sig     string
		address string
		status  int
	}{
		{"valid", string(req.Body), req.Signature, addr.Hex(), http.StatusOK},
		{"lowercase address", string(req.Body), req.Signature, strings.ToLower(addr.Hex()), http.StatusOK},
		{"missing signature", string(req.Body), "", addr.Hex(), http.StatusUnauthorized},
		{"missing address", string(req.Body), req.Signature, "", http.StatusUnauthorized},
		{"other address", string(req.Body), req.Signature, "0x0000000000000000000000000000000000000001", http.StatusUnauthorized},
		{"bad body", "{", req.Signature, addr.Hex(), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotBody = common.Address{}, ""

			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.sig != "" {
				r.Header.Set(com.SignatureHeader, tt.sig)
			}
			if tt.address != "" {
				r.Header.Set(com.AddressHeader, tt.address)
			}

			w := httptest.NewRecorder()
			h(w, r)

			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				require.Equal(t, common.Address{}, got)
				return
			}

			require.Equal(t, addr, got)
			require.Equal(t, `{"hello":"world"}`, gotBody)
		})
	}
}

func TestHealthMiddleware(t *testing.T) {
	ready := false
	h := HealthMiddleware(func() bool { return ready })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members", nil))
	require.Equal(t, http.StatusTeapot, w.Code)
}

func TestCORS(t *testing.T) {
	cr := chi.NewRouter()
	cr.Use((&cors{}).Middleware)
	cr.Get("/proposals", func(w http.ResponseWriter, r *http.Request) {})
	cr.Post("/proposals", func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	cr.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/proposals", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Allow"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), com.SignatureHeader)
}
