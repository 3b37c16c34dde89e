package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"parking_terminal/internal/parking"
)

var errUnbalancedQuote = errors.New("comillas sin cerrar")

type usageError struct {
	usage string
}

func (e usageError) Error() string {
	return "Uso: " + e.usage
}

// splitArgs splits a command line on whitespace. Single or double quotes
// group words, so names with spaces can be passed as one argument.
func splitArgs(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	inArg := false

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
		return nil, errUnbalancedQuote
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}

// parseDate accepts a plain date or any timestamp the API itself uses. A
// plain date used as an upper bound covers the whole day.
func parseDate(value string, endOfDay bool, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if day, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		if endOfDay {
			return day.Add(24*time.Hour - time.Second), nil
		}
		return day, nil
	}
	if day, err := time.ParseInLocation("02/01/2006", value, loc); err == nil {
		if endOfDay {
			return day.Add(24*time.Hour - time.Second), nil
		}
		return day, nil
	}
	parsed, err := parking.ParseTime(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha inválida %q", value)
	}
	return parsed, nil
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido %q", value)
	}
	return id, nil
}

func optionalBool(value string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return nil, nil
	case "si", "sí", "true", "1", "pagado":
		v := true
		return &v, nil
	case "no", "false", "0", "pendiente":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("valor inválido para pagado: %q", value)
	}
}
