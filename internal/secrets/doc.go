// Package secrets detects and redacts credentials in free text.
//
// Thoughts and moment descriptions are user-written and sometimes contain
// pasted tokens or connection strings. Everything sent to the AI scorer is
// passed through a Scrubber first; findings are reported by rule id only and
// never include the matched value.
//
// An optional TOML allowlist exempts known-safe strings from redaction:
//
//	[allowlist]
//	description = "team fixtures"
//	regexes = ['''sk-test-[a-z]+''', '''example\.com''']
package secrets
