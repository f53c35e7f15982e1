// Package signal extracts trade signals from raw chat messages and defines
// the source abstraction that delivers them.
package signal

import (
	"regexp"
	"strings"

	"github.com/nightowl-labs/signal-trader/internal/types"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
)

// tickerPattern matches a hashtag-prefixed word token, e.g. "#foo" in
// "The coin we have picked today is #foo". Only the first match counts.
var tickerPattern = regexp.MustCompile(`#(\w+)`)

// Parse scans text for the first hashtag-prefixed token and returns it as an
// uppercase symbol. It is a pure function with no side effects.
func Parse(text string) (types.Symbol, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New(errors.ErrCodeEmptySignal, "signal message is empty")
	}

	match := tickerPattern.FindStringSubmatch(text)
	if match == nil {
		return "", errors.Newf(errors.ErrCodeNoSignalFound, "no ticker token in message %q", text)
	}

	return types.Symbol(strings.ToUpper(match[1])), nil
}
