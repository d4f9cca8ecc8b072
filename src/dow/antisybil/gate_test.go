package antisybil

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/config"
)

// fakeSource serves canned wallet info, or a fixed error.
type fakeSource struct {
	info map[string]WalletInfo
	err  error
}

func (s fakeSource) WalletInfo(_ context.Context, address string) (*WalletInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info, ok := s.info[address]
	if !ok {
		return nil, errors.Errorf("unknown wallet %s", address)
	}
	return &info, nil
}

func testAntiSybil() config.AntiSybil {
	return config.AntiSybil{
		MinWalletAgeDays:    7,
		MinSolBalance:       0.01,
		MinTransactionCount: 5,
		MaxVotesPerHour:     3,
		MaxChallengesPerDay: 2,
		NewWalletTrust:      0.3,
		FeeBuffer:           0.1,
		CacheTTL:            time.Minute,
	}
}

func newTestGate(source Source) *Gate {
	return NewGate(testAntiSybil(), source, nil, zerolog.Nop())
}

func TestVerifyForVotingThresholds(t *testing.T) {
	ctx := context.Background()
	source := fakeSource{info: map[string]WalletInfo{
		"good":     {Address: "good", AgeDays: 100, Balance: 5, TxCount: 50},
		"young":    {Address: "young", AgeDays: 3, Balance: 5, TxCount: 50},
		"broke":    {Address: "broke", AgeDays: 100, Balance: 0.001, TxCount: 50},
		"inactive": {Address: "inactive", AgeDays: 100, Balance: 5, TxCount: 2},
	}}
	gate := newTestGate(source)

	t.Run("eligible wallet admitted", func(t *testing.T) {
		ok, reason, trust := gate.VerifyForVoting(ctx, "good")
		assert.True(t, ok)
		assert.Equal(t, "OK", reason)
		assert.Greater(t, trust, 0.3)
		assert.LessOrEqual(t, trust, 1.0)
	})

	t.Run("too young", func(t *testing.T) {
		ok, reason, _ := gate.VerifyForVoting(ctx, "young")
		assert.False(t, ok)
		assert.Contains(t, reason, "days old")
	})

	t.Run("balance floor", func(t *testing.T) {
		ok, reason, _ := gate.VerifyForVoting(ctx, "broke")
		assert.False(t, ok)
		assert.Contains(t, reason, "balance")
	})

	t.Run("activity floor", func(t *testing.T) {
		ok, reason, _ := gate.VerifyForVoting(ctx, "inactive")
		assert.False(t, ok)
		assert.Contains(t, reason, "transactions")
	})
}

// Source failure admits the vote with the default trust of a new wallet.
func TestVerifyForVotingFailsOpen(t *testing.T) {
	gate := newTestGate(fakeSource{err: errors.New("rpc down")})

	ok, reason, trust := gate.VerifyForVoting(context.Background(), "w1")
	assert.True(t, ok)
	assert.Contains(t, reason, "degraded")
	assert.InDelta(t, 0.3, trust, 1e-9)
}

// Source failure rejects the challenge: funds are at stake.
func TestVerifyForChallengeFailsClosed(t *testing.T) {
	gate := newTestGate(fakeSource{err: errors.New("rpc down")})

	ok, reason := gate.VerifyForChallenge(context.Background(), "w1", 5)
	assert.False(t, ok)
	assert.Contains(t, reason, "unavailable")
}

func TestVerifyForChallengeStricterThresholds(t *testing.T) {
	ctx := context.Background()
	source := fakeSource{info: map[string]WalletInfo{
		// Old enough to vote (7d floor) but not to challenge (14d floor).
		"teen": {Address: "teen", AgeDays: 10, Balance: 50, TxCount: 50},
		// Balance covers a small stake but not stake plus fee buffer.
		"tight": {Address: "tight", AgeDays: 100, Balance: 5.05, TxCount: 50},
		"good":  {Address: "good", AgeDays: 100, Balance: 50, TxCount: 50},
	}}
	gate := newTestGate(source)

	ok, _, _ := gate.VerifyForVoting(ctx, "teen")
	assert.True(t, ok)
	ok, reason := gate.VerifyForChallenge(ctx, "teen", 1)
	assert.False(t, ok)
	assert.Contains(t, reason, "14 days old")

	ok, reason = gate.VerifyForChallenge(ctx, "tight", 5)
	assert.False(t, ok)
	assert.Contains(t, reason, "Insufficient balance")

	ok, reason = gate.VerifyForChallenge(ctx, "good", 5)
	assert.True(t, ok)
	assert.Equal(t, "OK", reason)
}

func TestVoteRateLimit(t *testing.T) {
	ctx := context.Background()
	source := fakeSource{info: map[string]WalletInfo{
		"w1": {Address: "w1", AgeDays: 100, Balance: 5, TxCount: 50},
	}}
	gate := newTestGate(source) // 3 votes/hour

	for i := 0; i < 3; i++ {
		ok, _, _ := gate.VerifyForVoting(ctx, "w1")
		assert.True(t, ok, "vote %d should be admitted", i)
	}
	ok, reason, _ := gate.VerifyForVoting(ctx, "w1")
	assert.False(t, ok)
	assert.Contains(t, reason, "Rate limited")

	stats := gate.Stats("w1")
	assert.Equal(t, 3, stats.VotesLastHour)
	assert.Zero(t, stats.VotesRemaining)
}

func TestChallengeRateLimit(t *testing.T) {
	ctx := context.Background()
	source := fakeSource{info: map[string]WalletInfo{
		"w1": {Address: "w1", AgeDays: 100, Balance: 50, TxCount: 50},
	}}
	gate := newTestGate(source) // 2 challenges/day

	for i := 0; i < 2; i++ {
		ok, _ := gate.VerifyForChallenge(ctx, "w1", 1)
		assert.True(t, ok, "challenge %d should be admitted", i)
	}
	ok, reason := gate.VerifyForChallenge(ctx, "w1", 1)
	assert.False(t, ok)
	assert.Contains(t, reason, "Rate limited")

	stats := gate.Stats("w1")
	assert.Equal(t, 2, stats.ChallengesLastDay)
	assert.Zero(t, stats.ChallengesRemaining)
}

// A rejected attempt must not consume rate-limit budget.
func TestRejectionDoesNotConsumeBudget(t *testing.T) {
	ctx := context.Background()
	source := fakeSource{info: map[string]WalletInfo{
		"young": {Address: "young", AgeDays: 1, Balance: 5, TxCount: 50},
	}}
	gate := newTestGate(source)

	for i := 0; i < 10; i++ {
		ok, _, _ := gate.VerifyForVoting(ctx, "young")
		assert.False(t, ok)
	}
	assert.Zero(t, gate.Stats("young").VotesLastHour)
}

func TestTrustScoreBounds(t *testing.T) {
	gate := newTestGate(fakeSource{})

	newish := gate.trustScore(&WalletInfo{AgeDays: 0, Balance: 0, TxCount: 0})
	assert.InDelta(t, 0.3, newish, 1e-9)

	established := gate.trustScore(&WalletInfo{AgeDays: 365, Balance: 10, TxCount: 100})
	assert.InDelta(t, 1.0, established, 1e-9)

	whale := gate.trustScore(&WalletInfo{AgeDays: 5000, Balance: 1e6, TxCount: 1e6})
	assert.LessOrEqual(t, whale, 1.0)

	mid := gate.trustScore(&WalletInfo{AgeDays: 182, Balance: 5, TxCount: 50})
	assert.Greater(t, mid, newish)
	assert.Less(t, mid, established)
}

// Wallet info is cached: after the first lookup the source can disappear and
// admission keeps working until the TTL lapses.
func TestWalletInfoCached(t *testing.T) {
	ctx := context.Background()
	info := map[string]WalletInfo{
		"w1": {Address: "w1", AgeDays: 100, Balance: 5, TxCount: 50},
	}
	src := &flakySource{inner: fakeSource{info: info}}
	gate := NewGate(testAntiSybil(), src, nil, zerolog.Nop())

	ok, _, _ := gate.VerifyForVoting(ctx, "w1")
	assert.True(t, ok)

	src.fail = true
	ok, reason, trust := gate.VerifyForVoting(ctx, "w1")
	assert.True(t, ok)
	assert.Equal(t, "OK", reason)
	assert.Greater(t, trust, 0.3)
}

type flakySource struct {
	inner fakeSource
	fail  bool
}

func (s *flakySource) WalletInfo(ctx context.Context, address string) (*WalletInfo, error) {
	if s.fail {
		return nil, errors.New("source offline")
	}
	return s.inner.WalletInfo(ctx, address)
}

func TestStubSourceDeterministic(t *testing.T) {
	ctx := context.Background()
	a, err := StubSource{}.WalletInfo(ctx, "wallet-a")
	assert.NoError(t, err)
	b, err := StubSource{}.WalletInfo(ctx, "wallet-a")
	assert.NoError(t, err)
	assert.Equal(t, a, b)

	assert.GreaterOrEqual(t, a.AgeDays, 30)
	assert.GreaterOrEqual(t, a.Balance, 1.0)
	assert.GreaterOrEqual(t, a.TxCount, 10)
}
