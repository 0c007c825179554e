package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
)

// wallet-init derives (or generates) the marketplace wallet and prints the
// resulting address, so users can fund it before their first purchase. The
// mnemonic itself is only ever echoed when freshly generated; it never
// touches disk here.
func main() {
	var (
		derivation = flag.String("path", "m/44'/60'/0'/0/0", "derivation path")
		generate   = flag.Bool("generate", false, "generate a fresh mnemonic instead of reading one")
		showKey    = flag.Bool("show-key", false, "also print the derived private key (handle with care)")
	)
	flag.Parse()

	var mnemonic string
	if *generate {
		var err error
		mnemonic, err = hdwallet.NewMnemonic(128)
		if err != nil {
			fatal(fmt.Errorf("generate mnemonic: %w", err))
		}
		fmt.Println("mnemonic:", mnemonic)
	} else {
		fmt.Fprintln(os.Stderr, "Enter mnemonic (12/15/18/21/24 words), then press enter:")
		mnemonic = strings.TrimSpace(readLine())
		if mnemonic == "" {
			fatal(fmt.Errorf("mnemonic is empty"))
		}
	}

	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		fatal(fmt.Errorf("invalid mnemonic: %w", err))
	}
	path, err := hdwallet.ParseDerivationPath(*derivation)
	if err != nil {
		fatal(fmt.Errorf("invalid derivation path: %w", err))
	}
	acct, err := w.Derive(path, false)
	if err != nil {
		fatal(fmt.Errorf("derive account: %w", err))
	}

	fmt.Println("address:", acct.Address.Hex())
	if *showKey {
		pk, err := w.PrivateKeyHex(acct)
		if err != nil {
			fatal(fmt.Errorf("derive private key: %w", err))
		}
		fmt.Println("private key:", pk)
	}
}

func readLine() string {
	r := bufio.NewReader(os.Stdin)
	line, _ := r.ReadString('\n')
	return line
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
