// Command gensecret prints a random hex value, handy for seeding OAuth
// client secrets in local Secret Manager or .env setups.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultSecretBytesLen = 32

func main() {
	length := pflag.IntP("bytes", "b", defaultSecretBytesLen, "Number of random bytes")
	pflag.Parse()

	b := make([]byte, *length)

	_, err := rand.Read(b)
	if err != nil {
		fmt.Printf("error while generating secret value: %v", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
