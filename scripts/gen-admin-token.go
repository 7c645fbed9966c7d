package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/perflog/perflog/internal/auth"
)

type output struct {
	Token string `json:"token,omitempty"`
	Hash  string `json:"hash"`
}

func main() {
	var (
		existing = flag.String("token", "", "Hash this token instead of generating one")
		format   = flag.String("format", "plain", "Output format: plain, env or json")
	)
	flag.Parse()

	var out output
	if *existing != "" {
		if !auth.ValidateTokenFormat(*existing) {
			fmt.Fprintf(os.Stderr, "token must look like %s<%d lowercase hex chars>\n", auth.TokenPrefix, auth.TokenSecretLen)
			os.Exit(1)
		}
		hash, err := auth.HashToken(*existing)
		if err != nil {
			fmt.Fprintln(os.Stderr, "hash token:", err)
			os.Exit(1)
		}
		out.Hash = hash
	} else {
		generated, err := auth.GenerateAdminToken()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate admin token:", err)
			os.Exit(1)
		}
		out = output{Token: generated.Plaintext, Hash: generated.Hash}
	}

	switch strings.ToLower(*format) {
	case "plain":
		if out.Token != "" {
			fmt.Println(out.Token)
		}
		fmt.Println(out.Hash)
	case "env":
		fmt.Printf("ADMIN_TOKEN_HASH='%s'\n", out.Hash)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain, env or json")
		os.Exit(1)
	}
}
