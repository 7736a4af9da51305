package btcutils

import "github.com/shopspring/decimal"

const coinDecimals = 8

// FormatSatoshi renders sats as a fixed eight-decimal coin amount followed by symbol, e.g. "0.00012345 BTC".
func FormatSatoshi(sats int64, symbol string) string {
	return decimal.New(sats, -coinDecimals).StringFixed(coinDecimals) + " " + symbol
}
