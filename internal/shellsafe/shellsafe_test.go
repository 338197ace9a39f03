package shellsafe

import (
	"testing"

	"github.com/kballard/go-shellquote"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{
			name:     "plain word",
			token:    "echo",
			expected: "echo",
		},
		{
			name:     "empty token",
			token:    "",
			expected: "''",
		},
		{
			name:     "whitespace",
			token:    "a b",
			expected: "'a b'",
		},
		{
			name:     "single quote",
			token:    "it's",
			expected: `'it'\''s'`,
		},
		{
			name:     "dollar expansion",
			token:    "$HOME",
			expected: "'$HOME'",
		},
		{
			name:     "backticks",
			token:    "`id`",
			expected: "'`id`'",
		},
		{
			name:     "path stays readable",
			token:    "/var/log/syslog",
			expected: "/var/log/syslog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quote(tt.token); got != tt.expected {
				t.Errorf("Quote(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	got := Join([]string{"echo", "a b", "it's"})
	want := `echo 'a b' 'it'\''s'`
	if got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}
}

// TestJoin_RoundTrip verifies the escaping contract end to end: splitting the
// joined command string with POSIX word-splitting rules must reproduce the
// exact original token sequence. go-shellquote implements the same rules a
// remote /bin/sh applies, so it serves as an independent oracle.
func TestJoin_RoundTrip(t *testing.T) {
	tests := [][]string{
		{"echo", "a b", "it's"},
		{"sh", "-c", "echo $HOME; ls | wc -l"},
		{"grep", "-e", `"quoted"`, "--", "file name with spaces"},
		{"printf", "%s\t%s\n", "tab\tseparated", "new\nline"},
		{"awk", `{print $1 " -> " $2}`},
		{"touch", "``", "''", `\\`},
		{"true", ""},
		{"cmd", "unicode: héllo wörld", "emoji \U0001F600"},
	}

	for _, tokens := range tests {
		joined := Join(tokens)
		split, err := shellquote.Split(joined)
		if err != nil {
			t.Fatalf("Split(%q) failed: %v", joined, err)
		}
		if len(split) != len(tokens) {
			t.Fatalf("round trip of %q changed arity: got %q", tokens, split)
		}
		for i := range tokens {
			if split[i] != tokens[i] {
				t.Errorf("round trip of %q: token %d = %q, want %q", tokens, i, split[i], tokens[i])
			}
		}
	}
}
