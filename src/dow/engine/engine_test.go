package engine

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/antisybil"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/config"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/data"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/reputation"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/treasury"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/types"
)

// stubGate admits everything with a fixed trust score.
type stubGate struct {
	trust         float64
	denyVote      string
	denyChallenge string
}

func (g stubGate) VerifyForVoting(context.Context, string) (bool, string, float64) {
	if g.denyVote != "" {
		return false, g.denyVote, 0
	}
	return true, "OK", g.trust
}

func (g stubGate) VerifyForChallenge(context.Context, string, float64) (bool, string) {
	if g.denyChallenge != "" {
		return false, g.denyChallenge
	}
	return true, "OK"
}

func (stubGate) Stats(string) antisybil.WalletStats { return antisybil.WalletStats{} }
func (stubGate) Prune()                             {}

func testConfig() config.Challenge {
	return config.Challenge{
		MinStake:             1,
		MaxStake:             100,
		ChallengeWindow:      time.Hour,
		VotingPeriod:         time.Hour,
		MinVoters:            3,
		MinEvidenceLinks:     2,
		MinExplanationLength: 10,
		WinnerMultiplier:     2.0,
		MaxActivePerUser:     3,
	}
}

func setupEngine(t *testing.T, gate Gate, balance float64) (*Engine, *gorm.DB) {
	t.Helper()
	db := data.MustDatabase(":memory:")
	require.NoError(t, data.Migrate(db))
	require.NoError(t, data.SeedTreasury(db, balance))

	logger := zerolog.Nop()
	eng := New(db, data.NewStore(db, logger), treasury.New(db, logger),
		reputation.NewTracker(db, logger), gate, testConfig(), logger)
	return eng, db
}

func registerVerdict(t *testing.T, eng *Engine, id string) {
	t.Helper()
	_, err := eng.RegisterVerdict(id, "the moon is made of cheese", "science", types.VerdictFalse, 0.9)
	require.NoError(t, err)
}

func submit(t *testing.T, eng *Engine, verdictID, wallet string, stake float64) *types.Challenge {
	t.Helper()
	ch, err := eng.SubmitChallenge(context.Background(), verdictID, wallet, stake,
		[]string{"https://a.example", "https://b.example"}, "clearly wrong, see sources")
	require.NoError(t, err)
	return ch
}

// expire moves the challenge's voting deadline into the past.
func expire(t *testing.T, db *gorm.DB, challengeID string) {
	t.Helper()
	err := db.Model(&types.Challenge{}).
		Where("challenge_id = ?", challengeID).
		Update("voting_deadline", time.Now().Add(-time.Minute)).Error
	require.NoError(t, err)
}

func treasuryRow(t *testing.T, eng *Engine) *types.Treasury {
	t.Helper()
	row, err := eng.GetTreasuryStats()
	require.NoError(t, err)
	return row
}

func TestRegisterVerdict(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{trust: 1}, 1000)

	v, err := eng.RegisterVerdict("vrd_1", "claim text", "health", types.VerdictTrue, 0.8)
	require.NoError(t, err)
	assert.False(t, v.Corrected)
	assert.True(t, v.ChallengeDeadline.After(time.Now()))

	_, err = eng.RegisterVerdict("vrd_1", "claim text", "health", types.VerdictTrue, 0.8)
	assert.ErrorIs(t, err, ErrVerdictExists)

	_, err = eng.RegisterVerdict("vrd_2", "claim", "health", "MAYBE", 0.8)
	assert.Error(t, err)

	_, err = eng.RegisterVerdict("vrd_3", "claim", "health", types.VerdictTrue, 1.5)
	assert.Error(t, err)
}

func TestSubmitChallengeValidation(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{trust: 1}, 1000)
	registerVerdict(t, eng, "vrd_1")
	ctx := context.Background()
	evidence := []string{"https://a.example", "https://b.example"}

	t.Run("stake below minimum", func(t *testing.T) {
		_, err := eng.SubmitChallenge(ctx, "vrd_1", "w1", 0.5, evidence, "clearly wrong, see sources")
		assert.ErrorContains(t, err, "minimum stake")
	})

	t.Run("stake above maximum", func(t *testing.T) {
		_, err := eng.SubmitChallenge(ctx, "vrd_1", "w1", 500, evidence, "clearly wrong, see sources")
		assert.ErrorContains(t, err, "maximum stake")
	})

	t.Run("too few evidence links", func(t *testing.T) {
		_, err := eng.SubmitChallenge(ctx, "vrd_1", "w1", 5, []string{"https://a.example"}, "clearly wrong, see sources")
		assert.ErrorContains(t, err, "evidence links")
	})

	t.Run("explanation too short", func(t *testing.T) {
		_, err := eng.SubmitChallenge(ctx, "vrd_1", "w1", 5, evidence, "nope")
		assert.ErrorContains(t, err, "explanation")
	})

	t.Run("unknown verdict", func(t *testing.T) {
		_, err := eng.SubmitChallenge(ctx, "vrd_missing", "w1", 5, evidence, "clearly wrong, see sources")
		assert.ErrorIs(t, err, ErrVerdictNotFound)
	})

	// No challenge row and no reservation may survive any rejection.
	row := treasuryRow(t, eng)
	assert.Zero(t, row.ReservedForPayouts)
	assert.Zero(t, row.TotalChallenges)
}

func TestSubmitChallengeReservesTreasury(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{trust: 1}, 1000)
	registerVerdict(t, eng, "vrd_1")

	ch := submit(t, eng, "vrd_1", "challenger", 10)
	assert.Equal(t, types.StatusVoting, ch.Status)

	row := treasuryRow(t, eng)
	// liability = stake * (multiplier - 1)
	assert.InDelta(t, 10.0, row.ReservedForPayouts, 1e-9)
	assert.InDelta(t, 10.0, row.TotalStakedAllTime, 1e-9)
	assert.Equal(t, 1, row.TotalChallenges)

	rep, err := eng.GetVoterReputation("challenger")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.TotalChallenges)
}

func TestSubmitChallengeDuplicateActiveRejected(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{trust: 1}, 1000)
	registerVerdict(t, eng, "vrd_1")
	submit(t, eng, "vrd_1", "w1", 5)

	before := treasuryRow(t, eng)
	_, err := eng.SubmitChallenge(context.Background(), "vrd_1", "w2", 5,
		[]string{"https://a.example", "https://b.example"}, "clearly wrong, see sources")
	assert.ErrorContains(t, err, "already has an active challenge")

	after := treasuryRow(t, eng)
	assert.Equal(t, before.ReservedForPayouts, after.ReservedForPayouts)
	assert.Equal(t, before.TotalChallenges, after.TotalChallenges)
}

func TestSubmitChallengeActiveCapPerUser(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{trust: 1}, 1000)
	for i := 0; i < 4; i++ {
		registerVerdict(t, eng, fmt.Sprintf("vrd_%d", i))
	}
	for i := 0; i < 3; i++ {
		submit(t, eng, fmt.Sprintf("vrd_%d", i), "w1", 5)
	}

	_, err := eng.SubmitChallenge(context.Background(), "vrd_3", "w1", 5,
		[]string{"https://a.example", "https://b.example"}, "clearly wrong, see sources")
	assert.ErrorContains(t, err, "maximum 3 active challenges")
}

func TestSubmitChallengeInsufficientTreasury(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{trust: 1}, 12)
	registerVerdict(t, eng, "vrd_1")
	registerVerdict(t, eng, "vrd_2")

	// First reservation locks 10 of the 12 available.
	submit(t, eng, "vrd_1", "w1", 10)

	_, err := eng.SubmitChallenge(context.Background(), "vrd_2", "w2", 5,
		[]string{"https://a.example", "https://b.example"}, "clearly wrong, see sources")
	assert.ErrorIs(t, err, treasury.ErrInsufficientFunds)

	row := treasuryRow(t, eng)
	assert.InDelta(t, 10.0, row.ReservedForPayouts, 1e-9)
	assert.LessOrEqual(t, row.ReservedForPayouts, row.TotalBalance)
}

func TestSubmitChallengeGateDenied(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{denyChallenge: "wallet too young"}, 1000)
	registerVerdict(t, eng, "vrd_1")

	_, err := eng.SubmitChallenge(context.Background(), "vrd_1", "w1", 5,
		[]string{"https://a.example", "https://b.example"}, "clearly wrong, see sources")
	assert.ErrorContains(t, err, "wallet too young")
	assert.Zero(t, treasuryRow(t, eng).TotalChallenges)
}

func TestCastVote(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{trust: 1}, 1000)
	registerVerdict(t, eng, "vrd_1")
	ch := submit(t, eng, "vrd_1", "challenger", 5)
	ctx := context.Background()

	vote, err := eng.CastVote(ctx, ch.ChallengeID, "voter1", types.PositionAI, "looks right to me")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, vote.Weight, 1.0)
	assert.LessOrEqual(t, vote.Weight, reputation.MaxWeight)

	got, err := eng.GetChallenge(ch.ChallengeID)
	require.NoError(t, err)
	assert.InDelta(t, vote.Weight, got.VotesForAI, 1e-9)
	assert.Equal(t, 1, got.VoterCount)

	rep, err := eng.GetVoterReputation("voter1")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.TotalVotes)

	t.Run("double vote rejected", func(t *testing.T) {
		_, err := eng.CastVote(ctx, ch.ChallengeID, "voter1", types.PositionChallenger, "")
		assert.ErrorIs(t, err, ErrAlreadyVoted)

		got, err := eng.GetChallenge(ch.ChallengeID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.VoterCount)
		assert.Zero(t, got.VotesForChallenger)
	})

	t.Run("self vote rejected", func(t *testing.T) {
		_, err := eng.CastVote(ctx, ch.ChallengeID, "challenger", types.PositionChallenger, "")
		assert.ErrorContains(t, err, "own challenge")
	})

	t.Run("unknown challenge", func(t *testing.T) {
		_, err := eng.CastVote(ctx, "chl_missing", "voter2", types.PositionAI, "")
		assert.ErrorIs(t, err, ErrChallengeNotFound)
	})

	t.Run("invalid position", func(t *testing.T) {
		_, err := eng.CastVote(ctx, ch.ChallengeID, "voter2", "abstain", "")
		assert.Error(t, err)
	})
}

func TestCastVoteAfterDeadline(t *testing.T) {
	eng, db := setupEngine(t, stubGate{trust: 1}, 1000)
	registerVerdict(t, eng, "vrd_1")
	ch := submit(t, eng, "vrd_1", "challenger", 5)
	expire(t, db, ch.ChallengeID)

	_, err := eng.CastVote(context.Background(), ch.ChallengeID, "voter1", types.PositionAI, "")
	assert.ErrorContains(t, err, "voting period has ended")
}

// Scenario: AI wins 2 votes to 1 with equal weights. The challenger forfeits
// the stake, the treasury absorbs it, and voters move by correctness.
func TestResolveAIWin(t *testing.T) {
	eng, db := setupEngine(t, stubGate{trust: 0}, 1000) // trust 0 => weight exactly 1.0
	registerVerdict(t, eng, "vrd_1")
	ch := submit(t, eng, "vrd_1", "challenger", 5)
	ctx := context.Background()

	for i, pos := range []string{types.PositionAI, types.PositionAI, types.PositionChallenger} {
		v, err := eng.CastVote(ctx, ch.ChallengeID, fmt.Sprintf("voter%d", i), pos, "")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, v.Weight, 1e-9)
	}

	before := treasuryRow(t, eng)
	expire(t, db, ch.ChallengeID)

	res, err := eng.Resolve(ch.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAIWin, res.Outcome)
	assert.Equal(t, types.PositionAI, res.Winner)

	after := treasuryRow(t, eng)
	assert.InDelta(t, before.TotalBalance+5, after.TotalBalance, 1e-9)
	assert.Zero(t, after.ReservedForPayouts)
	assert.Equal(t, 1, after.AIWins)

	got, err := eng.GetChallenge(ch.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusResolvedAIWin, got.Status)
	assert.NotNil(t, got.ResolvedAt)

	// Correct voters gained, the wrong voter lost.
	for i, want := range []float64{110, 110, 95} {
		rep, err := eng.GetVoterReputation(fmt.Sprintf("voter%d", i))
		require.NoError(t, err)
		assert.InDelta(t, want, rep.Reputation, 1e-9, "voter%d", i)
	}

	// Losing the stake is the challenger's whole penalty.
	chalRep, err := eng.GetVoterReputation("challenger")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, chalRep.Reputation, 1e-9)

	// Verdict stands, not corrected.
	v, err := eng.GetVerdict("vrd_1")
	require.NoError(t, err)
	assert.False(t, v.Corrected)
}

// Scenario: challenger wins 3 votes to 1 with multiplier 2.0. Payout is
// 2x stake, the treasury pays the extra stake beyond what it returns, and the
// challenger gets the fixed reputation bonus plus earnings.
func TestResolveChallengerWin(t *testing.T) {
	eng, db := setupEngine(t, stubGate{trust: 0}, 1000)
	registerVerdict(t, eng, "vrd_1")
	ch := submit(t, eng, "vrd_1", "challenger", 10)
	ctx := context.Background()

	positions := []string{types.PositionChallenger, types.PositionChallenger, types.PositionChallenger, types.PositionAI}
	for i, pos := range positions {
		_, err := eng.CastVote(ctx, ch.ChallengeID, fmt.Sprintf("voter%d", i), pos, "")
		require.NoError(t, err)
	}

	before := treasuryRow(t, eng)
	expire(t, db, ch.ChallengeID)

	res, err := eng.Resolve(ch.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChallengerWin, res.Outcome)
	assert.InDelta(t, 20.0, res.PayoutAmount, 1e-9)

	after := treasuryRow(t, eng)
	assert.InDelta(t, before.TotalBalance-10, after.TotalBalance, 1e-9)
	assert.Zero(t, after.ReservedForPayouts)
	assert.InDelta(t, 20.0, after.TotalPaidOut, 1e-9)
	assert.Equal(t, 1, after.ChallengerWins)

	got, err := eng.GetChallenge(ch.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusResolvedUserWin, got.Status)
	assert.InDelta(t, 20.0, got.PayoutAmount, 1e-9)

	rep, err := eng.GetVoterReputation("challenger")
	require.NoError(t, err)
	assert.InDelta(t, 150.0, rep.Reputation, 1e-9) // baseline + win bonus
	assert.Equal(t, 1, rep.SuccessfulChallenges)
	assert.InDelta(t, 20.0, rep.TotalWon, 1e-9)

	v, err := eng.GetVerdict("vrd_1")
	require.NoError(t, err)
	assert.True(t, v.Corrected)
}

// A deadline passing without quorum cancels the challenge and refunds the
// stake: reservation released, nothing forfeited, nothing paid.
func TestResolveQuorumCancellation(t *testing.T) {
	eng, db := setupEngine(t, stubGate{trust: 0}, 1000)
	registerVerdict(t, eng, "vrd_1")
	ch := submit(t, eng, "vrd_1", "challenger", 5)

	_, err := eng.CastVote(context.Background(), ch.ChallengeID, "voter0", types.PositionAI, "")
	require.NoError(t, err)

	expire(t, db, ch.ChallengeID)
	res, err := eng.Resolve(ch.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, res.Outcome)

	after := treasuryRow(t, eng)
	assert.InDelta(t, 1000.0, after.TotalBalance, 1e-9)
	assert.Zero(t, after.ReservedForPayouts)
	assert.Zero(t, after.TotalPaidOut)

	got, err := eng.GetChallenge(ch.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, got.Status)
}

// A tied weighted tally is voided, not silently awarded to either side.
func TestResolveTieCancelled(t *testing.T) {
	eng, db := setupEngine(t, stubGate{trust: 0}, 1000)
	registerVerdict(t, eng, "vrd_1")
	ch := submit(t, eng, "vrd_1", "challenger", 5)
	ctx := context.Background()

	positions := []string{types.PositionAI, types.PositionAI, types.PositionChallenger, types.PositionChallenger}
	for i, pos := range positions {
		_, err := eng.CastVote(ctx, ch.ChallengeID, fmt.Sprintf("voter%d", i), pos, "")
		require.NoError(t, err)
	}

	expire(t, db, ch.ChallengeID)
	res, err := eng.Resolve(ch.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.Contains(t, res.Reason, "Tied")

	after := treasuryRow(t, eng)
	assert.InDelta(t, 1000.0, after.TotalBalance, 1e-9)
	assert.Zero(t, after.ReservedForPayouts)
}

// Settlement is exactly-once: the second resolution attempt is a no-op that
// moves no funds and no reputation.
func TestResolveIdempotent(t *testing.T) {
	eng, db := setupEngine(t, stubGate{trust: 0}, 1000)
	registerVerdict(t, eng, "vrd_1")
	ch := submit(t, eng, "vrd_1", "challenger", 5)
	ctx := context.Background()

	for i, pos := range []string{types.PositionAI, types.PositionAI, types.PositionChallenger} {
		_, err := eng.CastVote(ctx, ch.ChallengeID, fmt.Sprintf("voter%d", i), pos, "")
		require.NoError(t, err)
	}
	expire(t, db, ch.ChallengeID)

	_, err := eng.Resolve(ch.ChallengeID)
	require.NoError(t, err)
	after := treasuryRow(t, eng)
	rep0, err := eng.GetVoterReputation("voter0")
	require.NoError(t, err)

	_, err = eng.Resolve(ch.ChallengeID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	again := treasuryRow(t, eng)
	assert.Equal(t, after.TotalBalance, again.TotalBalance)
	assert.Equal(t, after.AIWins, again.AIWins)

	rep0Again, err := eng.GetVoterReputation("voter0")
	require.NoError(t, err)
	assert.Equal(t, rep0.Reputation, rep0Again.Reputation)
}

func TestResolveBeforeDeadline(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{trust: 0}, 1000)
	registerVerdict(t, eng, "vrd_1")
	ch := submit(t, eng, "vrd_1", "challenger", 5)

	_, err := eng.Resolve(ch.ChallengeID)
	assert.ErrorIs(t, err, ErrVotingStillOpen)
}

func TestForceResolve(t *testing.T) {
	eng, _ := setupEngine(t, stubGate{trust: 0}, 1000)
	registerVerdict(t, eng, "vrd_1")
	ch := submit(t, eng, "vrd_1", "challenger", 10)

	t.Run("reason required", func(t *testing.T) {
		_, err := eng.ForceResolve(ch.ChallengeID, types.PositionAI, "")
		assert.ErrorContains(t, err, "reason")
	})

	// Bypasses quorum and deadline but settles through the same path.
	res, err := eng.ForceResolve(ch.ChallengeID, types.PositionChallenger, "evidence verified manually")
	require.NoError(t, err)
	assert.Equal(t, OutcomeChallengerWin, res.Outcome)
	assert.InDelta(t, 20.0, res.PayoutAmount, 1e-9)

	after := treasuryRow(t, eng)
	assert.InDelta(t, 990.0, after.TotalBalance, 1e-9)
	assert.Zero(t, after.ReservedForPayouts)

	t.Run("terminal challenge cannot be forced again", func(t *testing.T) {
		_, err := eng.ForceResolve(ch.ChallengeID, types.PositionAI, "second attempt")
		assert.ErrorContains(t, err, "cannot be resolved")
	})
}

// Conservation: across a random mix of outcomes, the treasury balance moves
// exactly by forfeited stakes minus net payouts, and nothing stays reserved.
func TestConservationOverRandomSequences(t *testing.T) {
	eng, db := setupEngine(t, stubGate{trust: 0}, 10_000)
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	expected := 10_000.0
	for i := 0; i < 30; i++ {
		verdictID := fmt.Sprintf("vrd_%d", i)
		registerVerdict(t, eng, verdictID)

		stake := 1 + rng.Float64()*99
		ch := submit(t, eng, verdictID, fmt.Sprintf("challenger_%d", i), stake)

		aiVotes := rng.Intn(4)
		chalVotes := rng.Intn(4)
		voter := 0
		for v := 0; v < aiVotes; v++ {
			_, err := eng.CastVote(ctx, ch.ChallengeID, fmt.Sprintf("c%d_v%d", i, voter), types.PositionAI, "")
			require.NoError(t, err)
			voter++
		}
		for v := 0; v < chalVotes; v++ {
			_, err := eng.CastVote(ctx, ch.ChallengeID, fmt.Sprintf("c%d_v%d", i, voter), types.PositionChallenger, "")
			require.NoError(t, err)
			voter++
		}

		expire(t, db, ch.ChallengeID)
		res, err := eng.Resolve(ch.ChallengeID)
		require.NoError(t, err)

		switch res.Outcome {
		case OutcomeAIWin:
			expected += stake
		case OutcomeChallengerWin:
			expected -= stake // treasury pays stake*(mult-1) = stake at 2.0x
		case OutcomeCancelled:
			// refund, no movement
		}
	}

	row := treasuryRow(t, eng)
	assert.InDelta(t, expected, row.TotalBalance, 1e-6)
	assert.InDelta(t, 0, row.ReservedForPayouts, 1e-9)
}

func TestCheckAndResolveSweep(t *testing.T) {
	eng, db := setupEngine(t, stubGate{trust: 0}, 1000)
	ctx := context.Background()

	// One expired with quorum, one expired without, one still open.
	for i := 0; i < 3; i++ {
		registerVerdict(t, eng, fmt.Sprintf("vrd_%d", i))
	}
	quorate := submit(t, eng, "vrd_0", "w0", 5)
	for i := 0; i < 3; i++ {
		_, err := eng.CastVote(ctx, quorate.ChallengeID, fmt.Sprintf("voter%d", i), types.PositionAI, "")
		require.NoError(t, err)
	}
	unquorate := submit(t, eng, "vrd_1", "w1", 5)
	open := submit(t, eng, "vrd_2", "w2", 5)

	expire(t, db, quorate.ChallengeID)
	expire(t, db, unquorate.ChallengeID)

	results := eng.CheckAndResolve()
	require.Len(t, results, 2)

	outcomes := map[string]string{}
	for _, r := range results {
		outcomes[r.ChallengeID] = r.Outcome
	}
	assert.Equal(t, OutcomeAIWin, outcomes[quorate.ChallengeID])
	assert.Equal(t, OutcomeCancelled, outcomes[unquorate.ChallengeID])

	stillOpen, err := eng.GetChallenge(open.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusVoting, stillOpen.Status)

	// A second sweep finds nothing left to settle.
	assert.Empty(t, eng.CheckAndResolve())
}

func TestVoteWeightUsesTrustScaling(t *testing.T) {
	// With full trust the baseline-reputation weight is 2.0; with zero trust
	// it collapses to the base 1.0.
	engFull, _ := setupEngine(t, stubGate{trust: 1}, 1000)
	registerVerdict(t, engFull, "vrd_1")
	ch := submit(t, engFull, "vrd_1", "challenger", 5)
	v, err := engFull.CastVote(context.Background(), ch.ChallengeID, "voter1", types.PositionAI, "")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v.Weight, 1e-9)

	engZero, _ := setupEngine(t, stubGate{trust: 0}, 1000)
	registerVerdict(t, engZero, "vrd_1")
	ch2 := submit(t, engZero, "vrd_1", "challenger", 5)
	v2, err := engZero.CastVote(context.Background(), ch2.ChallengeID, "voter1", types.PositionAI, "")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v2.Weight, 1e-9)
}
