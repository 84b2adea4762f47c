// Package all registers every exchange adapter with pkg/exchange.
package all

import (
	_ "github.com/betbot/xchange/internal/exchanges/cryptsy"
	_ "github.com/betbot/xchange/internal/exchanges/lakebtc"
)
