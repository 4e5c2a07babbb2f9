// Package wallet exposes the bitcoin wallet canister. Reads work anonymously against
// the gateway's default identity; sending needs an authenticated session.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/domain/identity"
	domain "github.com/bryanwahyu/osint-cafe/internal/domain/wallet"
)

// Principals resolves a session to its authenticated principal.
type Principals interface {
	Principal(sessionID string) (string, error)
}

type Service struct {
	Ledger   domain.Ledger
	Sessions Principals
	Logger   *zap.Logger
}

func NewService(ledger domain.Ledger, sessions Principals, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Ledger: ledger, Sessions: sessions, Logger: logger}
}

var errNoLedger = errors.New("wallet canister not configured")

// owner is the session principal, or "" for the gateway default.
func (s *Service) owner(sessionID string) string {
	if s.Sessions == nil || sessionID == "" {
		return ""
	}
	p, err := s.Sessions.Principal(sessionID)
	if err != nil {
		return ""
	}
	return p
}

func (s *Service) Address(ctx context.Context, sessionID string) (string, error) {
	if s.Ledger == nil {
		return "", errNoLedger
	}
	return s.Ledger.Address(ctx, s.owner(sessionID))
}

func (s *Service) Balance(ctx context.Context, sessionID string) (domain.Balance, error) {
	if s.Ledger == nil {
		return domain.Balance{}, errNoLedger
	}
	owner := s.owner(sessionID)
	addr, err := s.Ledger.Address(ctx, owner)
	if err != nil {
		return domain.Balance{}, err
	}
	sats, err := s.Ledger.Balance(ctx, owner)
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.NewBalance(addr, sats), nil
}

// Send transfers sats to destination from the session principal's wallet.
func (s *Service) Send(ctx context.Context, sessionID, destination string, sats uint64) (domain.Transfer, error) {
	if s.Sessions == nil {
		return domain.Transfer{}, identity.ErrUnauthenticated
	}
	principal, err := s.Sessions.Principal(sessionID)
	if err != nil {
		return domain.Transfer{}, err
	}
	destination = strings.TrimSpace(destination)
	if !domain.ValidAddress(destination) {
		return domain.Transfer{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, destination)
	}
	if sats == 0 {
		return domain.Transfer{}, domain.ErrInvalidAmount
	}
	if s.Ledger == nil {
		return domain.Transfer{}, errNoLedger
	}
	txid, err := s.Ledger.Send(ctx, principal, destination, sats)
	if err != nil {
		s.Logger.Warn("send failed", zap.String("principal", principal), zap.Error(err))
		return domain.Transfer{}, err
	}
	s.Logger.Info("btc sent", zap.String("principal", principal), zap.String("txid", txid), zap.Uint64("satoshi", sats))
	return domain.Transfer{TxID: txid, Destination: destination, Satoshi: sats}, nil
}
