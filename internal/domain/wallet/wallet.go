package wallet

import (
	"context"
	"errors"
	"regexp"
)

const satoshiPerBTC = 100_000_000

var (
	ErrInvalidAddress = errors.New("invalid bitcoin address")
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
)

// Balance is an amount held at an address.
type Balance struct {
	Address string  `json:"address,omitempty"`
	Satoshi uint64  `json:"satoshi"`
	BTC     float64 `json:"btc"`
}

// NewBalance fills in the BTC view of a satoshi amount.
func NewBalance(address string, sats uint64) Balance {
	return Balance{Address: address, Satoshi: sats, BTC: SatoshiToBTC(sats)}
}

// Transfer is a completed send.
type Transfer struct {
	TxID        string `json:"txid"`
	Destination string `json:"destination"`
	Satoshi     uint64 `json:"satoshi"`
}

// Ledger is the bitcoin wallet canister.
type Ledger interface {
	Address(ctx context.Context, owner string) (string, error)
	Balance(ctx context.Context, owner string) (uint64, error)
	Send(ctx context.Context, caller, destination string, sats uint64) (string, error)
}

var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[13][a-km-zA-HJ-NP-Z1-9]{25,34}$`), // legacy P2PKH/P2SH
	regexp.MustCompile(`^bc1[a-z0-9]{39,59}$`),               // bech32, taproot
	regexp.MustCompile(`^tb1[a-z0-9]{39,59}$`),               // testnet bech32
}

// ValidAddress does a shape check only; checksums are the canister's job.
func ValidAddress(addr string) bool {
	for _, p := range addressPatterns {
		if p.MatchString(addr) {
			return true
		}
	}
	return false
}

func SatoshiToBTC(s uint64) float64 { return float64(s) / satoshiPerBTC }

// BTCToSatoshi truncates to whole satoshis.
func BTCToSatoshi(btc float64) uint64 {
	if btc <= 0 {
		return 0
	}
	return uint64(btc * satoshiPerBTC)
}
