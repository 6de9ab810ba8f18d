package services

import (
	"context"
	"time"

	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/pkg/logger"
)

// Entitlement decides whether a user may use remote storage. A user qualifies
// through the premium subscription or, when a token contract is configured,
// by holding a non-zero balance of the premium token.
type Entitlement struct {
	requirePremium bool
	eth            *EthereumService
	log            logger.Logger
	now            func() time.Time
}

// NewEntitlement creates the entitlement check. eth may be nil.
func NewEntitlement(requirePremium bool, eth *EthereumService, log logger.Logger) *Entitlement {
	return &Entitlement{
		requirePremium: requirePremium,
		eth:            eth,
		log:            log,
		now:            time.Now,
	}
}

func (e *Entitlement) Allowed(ctx context.Context, user *models.User) bool {
	if !e.requirePremium {
		return true
	}
	if user.HasActivePremium(e.now()) {
		return true
	}
	if e.eth == nil || !e.eth.TokenBalanceAvailable() {
		return false
	}

	balance, err := e.eth.GetTokenBalance(ctx, user.WalletAddress)
	if err != nil {
		e.log.WithError(err).WithField("user_id", user.ID).Warning("Failed to read premium token balance")
		return false
	}
	return balance.Sign() > 0
}
