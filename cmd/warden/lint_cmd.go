package main

import (
	"flag"
	"fmt"
	"os"

	"warden/internal/infra/policydoc"
)

// runLint parses a policy document the way the server would and reports
// what it finds without loading it anywhere.
func runLint(args []string) int {
	fs := flag.NewFlagSet("lint", flag.ContinueOnError)
	in := fs.String("in", "", "policy document path")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *in == "" {
		fmt.Fprintln(os.Stderr, "lint requires --in")
		return 1
	}

	payload, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read policy document: %v\n", err)
		return 1
	}

	policy, warnings, err := policydoc.Parse(payload)
	if err != nil {
		fmt.Printf("status=invalid\n")
		fmt.Fprintf(os.Stderr, "parse policy document: %v\n", err)
		return 1
	}

	fmt.Printf("status=ok\n")
	fmt.Printf("environment=%s\n", policy.Name)
	fmt.Printf("max_expiry=%s\n", policy.MaxExpiry)
	fmt.Printf("privileges=%d\n", len(policy.Privileges()))
	for _, warning := range warnings {
		fmt.Printf("warning=%s\n", warning)
	}
	if len(warnings) > 0 {
		return 2
	}
	return 0
}
