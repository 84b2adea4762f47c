// Package metrics publishes per-exchange request counters through expvar
// and serves them, with pprof, on a debug listener.
package metrics

import (
	"expvar"
	"strings"

	"github.com/betbot/xchange/pkg/exchange"
)

// Maps are keyed by lower-case exchange name; RequestErrors by
// "<exchange>.<kind>".
var (
	SignedRequests = expvar.NewMap("signed_requests")
	SignedRetries  = expvar.NewMap("signed_retries")
	RequestErrors  = expvar.NewMap("request_errors")
)

// ObserveSigned counts one signed attempt and, if it failed, its error kind.
func ObserveSigned(exchangeName string, err error) {
	key := strings.ToLower(exchangeName)
	SignedRequests.Add(key, 1)
	if err != nil {
		RequestErrors.Add(key+"."+kindLabel(err), 1)
	}
}

func ObserveRetry(exchangeName string) {
	SignedRetries.Add(strings.ToLower(exchangeName), 1)
}

func kindLabel(err error) string {
	if k := exchange.KindOf(err); k != 0 {
		return k.String()
	}
	return "other"
}
