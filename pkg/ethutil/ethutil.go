// Package ethutil has address and token-unit helpers.
package ethutil

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenDecimals is the decimals() of the DX token.
const TokenDecimals = 18

const ZeroAddress = "0x0000000000000000000000000000000000000000"

func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// NormalizeAddress lowercases and trims an address. Empty input stays empty.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ShortenAddress renders 0x1234...abcd style labels.
func ShortenAddress(address string, prefix, suffix int) string {
	if len(address) < prefix+suffix {
		return address
	}
	return address[:prefix] + "..." + address[len(address)-suffix:]
}

// FormatTokenAmount converts wei to a DX decimal string ("1.5").
func FormatTokenAmount(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -TokenDecimals).String()
}

// ParseTokenAmount converts a DX decimal string to wei.
func ParseTokenAmount(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("invalid token amount %q: %v", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid token amount %q: negative", amount)
	}
	wei := d.Shift(TokenDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("invalid token amount %q: more than %d decimals", amount, TokenDecimals)
	}
	return wei.BigInt(), nil
}

// TokensToWei converts a whole number of DX tokens to wei.
func TokensToWei(tokens int64) *big.Int {
	return decimal.NewFromInt(tokens).Shift(TokenDecimals).BigInt()
}
