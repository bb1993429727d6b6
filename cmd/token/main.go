// cmd/token generates signing keys and mints session tokens for the server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jason-s-yu/jackpot/internal/auth"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	var (
		genKeys = flag.Bool("genkeys", false, "Generate a new key pair at the key paths")
		subject = flag.String("sub", "", "Participant id to mint a token for")
		privKey = flag.String("private", os.Getenv("TOKEN_PRIVATE_KEY_PATH"), "Private key path (or TOKEN_PRIVATE_KEY_PATH)")
		pubKey  = flag.String("public", os.Getenv("TOKEN_PUBLIC_KEY_PATH"), "Public key path (or TOKEN_PUBLIC_KEY_PATH)")
		expire  = flag.String("expire", os.Getenv("TOKEN_EXPIRE_TIME"), "Token lifetime, e.g. 24h (default never)")
	)
	flag.Parse()

	if *privKey == "" || *pubKey == "" {
		log.Fatal("Both -private and -public key paths are required")
	}
	expiry, err := auth.ParseExpiry(*expire)
	if err != nil {
		log.Fatal(err)
	}

	if *genKeys {
		signer, err := auth.NewSigner(expiry)
		if err != nil {
			log.Fatal(err)
		}
		if err := signer.WriteKeys(*privKey, *pubKey); err != nil {
			log.Fatal(err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s and %s\n", *privKey, *pubKey)
	}

	if *subject == "" {
		return
	}
	signer, err := auth.LoadSigner(*privKey, *pubKey, expiry)
	if err != nil {
		log.Fatal(err)
	}
	token, err := signer.CreateJWT(*subject)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
