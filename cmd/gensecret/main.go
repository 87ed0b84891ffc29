// Prints fresh random keys for the SECRET_KEY and CIPHER_KEY settings
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const KeyBytesLen = 32

func generate() (string, error) {
	b := make([]byte, KeyBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

func main() {
	for _, name := range []string{"SECRET_KEY", "CIPHER_KEY"} {
		key, err := generate()
		if err != nil {
			fmt.Printf("error while generating %s: %v", name, err)
			os.Exit(1)
		}

		fmt.Printf("%s=%s\n", name, key)
	}
}
