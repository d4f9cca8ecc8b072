// Package antisybil is the admission filter for votes and challenge
// submissions. It checks wallet age, balance and activity against configured
// floors, rate-limits per wallet, and derives a trust score used to scale
// vote influence. Economic checks live elsewhere; this package only decides
// who may participate.
package antisybil

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/config"
)

// WalletStats reports a wallet's remaining allowance in the current windows.
type WalletStats struct {
	VotesLastHour       int `json:"votes_last_hour"`
	VotesRemaining      int `json:"votes_remaining"`
	ChallengesLastDay   int `json:"challenges_last_day"`
	ChallengesRemaining int `json:"challenges_remaining"`
}

type Gate struct {
	cfg      config.AntiSybil
	source   Source
	cache    *infoCache
	voteRate *slidingWindow
	chalRate *slidingWindow
	logger   zerolog.Logger
}

// NewGate builds the admission gate. rdb may be nil; the wallet-info cache
// then lives in process memory.
func NewGate(cfg config.AntiSybil, source Source, rdb *redis.Client, logger zerolog.Logger) *Gate {
	return &Gate{
		cfg:      cfg,
		source:   source,
		cache:    newInfoCache(rdb, cfg.CacheTTL),
		voteRate: newSlidingWindow(cfg.MaxVotesPerHour, time.Hour),
		chalRate: newSlidingWindow(cfg.MaxChallengesPerDay, 24*time.Hour),
		logger:   logger.With().Str("component", "antisybil").Logger(),
	}
}

// VerifyForVoting decides vote admission and returns the trust score used to
// scale the vote's influence. When the wallet-info source is unreachable the
// gate fails open: availability wins over strict sybil protection here, and
// the degradation is logged for operators.
func (g *Gate) VerifyForVoting(ctx context.Context, wallet string) (bool, string, float64) {
	if !g.voteRate.Allowed(wallet) {
		return false, fmt.Sprintf("Rate limited: maximum %d votes per hour", g.cfg.MaxVotesPerHour), 0
	}

	info, err := g.walletInfo(ctx, wallet)
	if err != nil {
		g.logger.Warn().Err(err).Str("wallet", wallet).
			Msg("wallet verification source unreachable, failing open for vote")
		g.voteRate.Record(wallet)
		return true, "verification degraded, admitted with default trust", g.cfg.NewWalletTrust
	}

	if info.AgeDays < g.cfg.MinWalletAgeDays {
		return false, fmt.Sprintf("Wallet must be at least %d days old", g.cfg.MinWalletAgeDays), 0
	}
	if info.Balance < g.cfg.MinSolBalance {
		return false, fmt.Sprintf("Minimum %.2f SOL balance required", g.cfg.MinSolBalance), 0
	}
	if info.TxCount < g.cfg.MinTransactionCount {
		return false, fmt.Sprintf("Wallet needs at least %d transactions", g.cfg.MinTransactionCount), 0
	}

	g.voteRate.Record(wallet)
	return true, "OK", g.trustScore(info)
}

// VerifyForChallenge decides challenge admission. Thresholds are stricter
// than voting (double the age floor, balance must cover stake plus fees), and
// a source failure is a hard reject: stakes are too high to fail open.
func (g *Gate) VerifyForChallenge(ctx context.Context, wallet string, stake float64) (bool, string) {
	if !g.chalRate.Allowed(wallet) {
		return false, fmt.Sprintf("Rate limited: maximum %d challenges per day", g.cfg.MaxChallengesPerDay)
	}

	info, err := g.walletInfo(ctx, wallet)
	if err != nil {
		g.logger.Error().Err(err).Str("wallet", wallet).
			Msg("wallet verification source unreachable, rejecting challenge")
		return false, "Wallet verification unavailable, try again later"
	}

	minAge := g.cfg.MinWalletAgeDays * 2
	if info.AgeDays < minAge {
		return false, fmt.Sprintf("Wallet must be at least %d days old to challenge", minAge)
	}
	required := stake + g.cfg.FeeBuffer
	if info.Balance < required {
		return false, fmt.Sprintf("Insufficient balance: need %.2f SOL", required)
	}

	g.chalRate.Record(wallet)
	return true, "OK"
}

// Stats returns the wallet's rate-limit headroom.
func (g *Gate) Stats(wallet string) WalletStats {
	votes := g.voteRate.Count(wallet)
	chals := g.chalRate.Count(wallet)
	return WalletStats{
		VotesLastHour:       votes,
		VotesRemaining:      max(0, g.cfg.MaxVotesPerHour-votes),
		ChallengesLastDay:   chals,
		ChallengesRemaining: max(0, g.cfg.MaxChallengesPerDay-chals),
	}
}

// Prune drops aged-out rate-limit state. Called from the background sweep.
func (g *Gate) Prune() {
	g.voteRate.Prune()
	g.chalRate.Prune()
}

func (g *Gate) walletInfo(ctx context.Context, wallet string) (*WalletInfo, error) {
	if info, ok := g.cache.get(ctx, wallet); ok {
		return info, nil
	}
	info, err := g.source.WalletInfo(ctx, wallet)
	if err != nil {
		return nil, err
	}
	g.cache.set(ctx, info)
	return info, nil
}

// trustScore maps wallet footprint into [newWalletTrust, 1]. It scales vote
// influence only; it never blocks admission.
func (g *Gate) trustScore(info *WalletInfo) float64 {
	score := g.cfg.NewWalletTrust
	score += math.Min(float64(info.AgeDays)/365, 1.0) * 0.3
	score += math.Min(info.Balance/10, 1.0) * 0.2
	score += math.Min(float64(info.TxCount)/100, 1.0) * 0.2
	return math.Min(score, 1.0)
}
