package security

import (
	shellquote "github.com/kballard/go-shellquote"
)

// Tokenize splits a command string into argv-shaped tokens the way a shell
// would, without ever invoking a shell: no expansion, no substitution, no
// redirection handling. This is the lexer spec.md §4.3 requires
// ("classified by lexing it into tokens without executing any shell
// expansion"). go-shellquote is the teacher's own dependency for exactly
// this kind of quoted-word splitting.
func Tokenize(command string) ([]string, error) {
	return shellquote.Split(command)
}
