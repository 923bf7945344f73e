package main

import (
	"flag"
	"log"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/citizenwallet/governance/internal/storage"
)

func main() {
	out := flag.String("out", "", "optional .env file to write BRIDGE_PRIVATE_KEY to")

	flag.Parse()

	log.Default().Println("generating...")
	log.Default().Println(" ")

	pk, address, err := com.GenerateHexPrivateKey()
	if err != nil {
		log.Fatal(err)
	}

	log.Default().Printf("private key: %s\n", pk)
	log.Default().Printf("address: %s\n", address.Hex())

	if *out != "" {
		err = storage.SetEnv(*out, "BRIDGE_PRIVATE_KEY", pk)
		if err != nil {
			log.Fatal(err)
		}

		log.Default().Printf("written to: %s\n", *out)
	}
}
