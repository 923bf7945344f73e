package main

import (
	"bytes"
	"flag"
	"io"
	"log"
	"net/http"
	"time"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/citizenwallet/governance/pkg/router"
	"github.com/ethereum/go-ethereum/crypto"
)

func main() {
	key := flag.String("key", "", "hex private key of the signer")

	data := flag.String("data", "{}", "json body to sign")

	ttl := flag.Duration("ttl", time.Minute, "how long the signature stays valid")

	url := flag.String("url", "", "optional url to send the signed request to")

	method := flag.String("method", http.MethodPost, "http method used with -url")

	apiKey := flag.String("apikey", "", "optional api key used with -url")

	flag.Parse()

	if *key == "" {
		log.Fatal("key is required")
	}

	pk, err := com.HexToPrivateKey(*key)
	if err != nil {
		log.Fatal(err)
	}

	addr := crypto.PubkeyToAddress(pk.PublicKey).Hex()

	req, err := router.SignRequest(pk, []byte(*data), *ttl)
	if err != nil {
		log.Fatal(err)
	}

	if *url == "" {
		log.Default().Printf("%s: %s\n", com.AddressHeader, addr)
		log.Default().Printf("%s: %s\n", com.SignatureHeader, req.Signature)
		log.Default().Printf("body: %s\n", req.Body)
		return
	}

	r, err := http.NewRequest(*method, *url, bytes.NewReader(req.Body))
	if err != nil {
		log.Fatal(err)
	}

	r.Header.Set("Content-Type", "application/json")
	r.Header.Set(com.AddressHeader, addr)
	r.Header.Set(com.SignatureHeader, req.Signature)
	if *apiKey != "" {
		r.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := http.DefaultClient.Do(r)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}

	log.Default().Printf("%s: %s\n", resp.Status, body)
}
