package token

import "strings"

// Obfuscation is a display-layer transform so tokens embed cleanly in
// URLs: a fixed prefix plus separator substitution. It is reversible and
// does not affect cryptographic validity.

const (
	obfuscatedPrefix = "wtk-"
	dotSubstitute    = "~"
)

func Obfuscate(token string) string {
	return obfuscatedPrefix + strings.ReplaceAll(token, ".", dotSubstitute)
}

func Deobfuscate(display string) string {
	trimmed := strings.TrimPrefix(display, obfuscatedPrefix)
	return strings.ReplaceAll(trimmed, dotSubstitute, ".")
}
