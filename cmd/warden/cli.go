package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "inspect":
		return runInspect(args[2:])
	case "lint":
		return runLint(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "warden"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s inspect --token <token> --key <signing-key> [--issuer <issuer>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s lint --in <policy.json>\n", name)
}
