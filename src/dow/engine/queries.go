package engine

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/antisybil"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/types"
)

// Read-side passthroughs so the API layer only talks to the engine.

func (e *Engine) GetChallenge(challengeID string) (*types.Challenge, error) {
	ch, err := e.store.GetChallenge(challengeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChallengeNotFound
	}
	return ch, err
}

func (e *Engine) GetActiveChallenges() ([]types.Challenge, error) {
	return e.store.ActiveChallenges()
}

func (e *Engine) GetChallengesByWallet(wallet string) ([]types.Challenge, error) {
	return e.store.ChallengesByWallet(wallet)
}

func (e *Engine) GetChallengesByVerdict(verdictID string) ([]types.Challenge, error) {
	return e.store.ChallengesByVerdict(verdictID)
}

func (e *Engine) GetVotes(challengeID string) ([]types.Vote, error) {
	return e.store.VotesForChallenge(challengeID)
}

func (e *Engine) GetVerdict(verdictID string) (*types.Verdict, error) {
	v, err := e.store.GetVerdict(verdictID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVerdictNotFound
	}
	return v, err
}

// GetVoterReputation returns the wallet's profile, or the baseline profile
// for wallets that have never participated.
func (e *Engine) GetVoterReputation(wallet string) (*types.VoterReputation, error) {
	rep, err := e.store.GetReputation(wallet)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var fresh *types.VoterReputation
		err = e.db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			fresh, txErr = e.rep.EnsureRecord(tx, wallet)
			return txErr
		})
		return fresh, err
	}
	return rep, err
}

func (e *Engine) GetTopChallengers(limit int) ([]types.VoterReputation, error) {
	return e.store.TopChallengers(limit)
}

// GetTopVoters lists voters by accuracy; wallets need at least five votes to
// appear so the board is not dominated by one-shot accounts.
func (e *Engine) GetTopVoters(limit int) ([]types.VoterReputation, error) {
	return e.store.TopVoters(limit, 5)
}

func (e *Engine) GetTreasuryStats() (*types.Treasury, error) {
	return e.treasury.Stats()
}

func (e *Engine) GetTreasuryTransactions(limit int) ([]types.TreasuryTransaction, error) {
	return e.store.TreasuryTransactions(limit)
}

func (e *Engine) AddTreasuryFunds(amount float64, description string) error {
	return e.treasury.AddFunds(amount, description)
}

func (e *Engine) GetWalletStats(wallet string) antisybil.WalletStats {
	return e.gate.Stats(wallet)
}

// PruneRateLimits drops aged-out anti-sybil rate-limit state. Invoked from
// the background sweep.
func (e *Engine) PruneRateLimits() {
	e.gate.Prune()
}
