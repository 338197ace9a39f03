// Package shellsafe escapes argument tokens for remote execution through a
// POSIX shell.
//
// The SSH "exec" channel request carries a single opaque command string with
// no argument-array quoting convention, so a command built from individual
// tokens is only as safe as its escaping. Quote wraps each token in single
// quotes, the one POSIX quoting form under which every character loses its
// special meaning, and Join glues quoted tokens with single spaces.
package shellsafe

import "strings"

// Tokens made solely of these characters survive a POSIX shell unquoted, so
// they are passed through as-is to keep logged commands readable.
const safeChars = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"-_./=:@%+,"

// Quote escapes a single token so that a POSIX-compatible shell parses it
// back into exactly the original token.
//
// A single quote cannot appear inside a single-quoted string, so embedded
// quotes are emitted as '\'' (close quote, literal quote, reopen quote).
func Quote(token string) string {
	if token == "" {
		return "''"
	}
	if isSafe(token) {
		return token
	}
	var b strings.Builder
	b.Grow(len(token) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(token); i++ {
		if token[i] == '\'' {
			b.WriteString(`'\''`)
			continue
		}
		b.WriteByte(token[i])
	}
	b.WriteByte('\'')
	return b.String()
}

// Join escapes every token and joins them with single spaces, producing one
// command string suitable for a remote "exec" request.
func Join(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, token := range tokens {
		quoted[i] = Quote(token)
	}
	return strings.Join(quoted, " ")
}

func isSafe(token string) bool {
	for i := 0; i < len(token); i++ {
		if !strings.ContainsRune(safeChars, rune(token[i])) {
			return false
		}
	}
	return true
}
