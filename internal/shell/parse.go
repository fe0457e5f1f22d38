package shell

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

var (
	errUnterminatedQuote = errors.New("unterminated quote")
	errInvalidNumber     = errors.New("invalid number")
)

// splitArgs делит строку на аргументы. Одинарные и двойные кавычки объединяют слова.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inArg   bool
	)

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case unicode.IsSpace(r):
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}

	if quote != 0 {
		return nil, errUnterminatedQuote
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}

// parseQuantity принимает только целое число.
func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errInvalidNumber
	}
	return n, nil
}

// splitTail отделяет n последних аргументов; остаток склеивается пробелом в имя.
func splitTail(args []string, n int) (string, []string, bool) {
	if len(args) <= n {
		return "", nil, false
	}
	head := strings.Join(args[:len(args)-n], " ")
	return head, args[len(args)-n:], true
}
