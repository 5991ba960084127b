package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"warden/internal/domain"
	"warden/internal/infra/token"
)

// runInspect verifies an activation token offline and prints the pending
// request it carries.
func runInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	rawToken := fs.String("token", "", "activation token, obfuscated or raw")
	key := fs.String("key", "", "token signing key")
	issuer := fs.String("issuer", "", "expected token issuer")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *rawToken == "" || *key == "" {
		fmt.Fprintln(os.Stderr, "inspect requires --token and --key")
		return 1
	}

	signer, err := token.NewSigner[domain.GrantID]([]byte(*key), token.GrantIDConverter{}, token.Config{Issuer: *issuer})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init signer: %v\n", err)
		return 1
	}

	request, err := signer.Verify(context.Background(), token.Deobfuscate(*rawToken))
	if err != nil {
		fmt.Printf("status=invalid\n")
		fmt.Fprintf(os.Stderr, "verify token: %v\n", err)
		return 1
	}

	fmt.Printf("status=valid\n")
	fmt.Printf("activation_id=%s\n", request.ID)
	fmt.Printf("requester=%s\n", request.RequestingUser)
	fmt.Printf("privilege=%s\n", request.Privilege)
	fmt.Printf("justification=%s\n", request.Justification)
	fmt.Printf("start_time=%s\n", request.StartTime.UTC().Format(time.RFC3339))
	fmt.Printf("end_time=%s\n", request.EndTime.UTC().Format(time.RFC3339))
	if reviewers := request.Reviewers.Strings(); len(reviewers) > 0 {
		fmt.Printf("reviewers=%s\n", strings.Join(reviewers, ","))
	}
	return 0
}
