// Package engine drives the challenge lifecycle: verdict registration, stake
// submission, weighted voting and exactly-once settlement. Every state
// transition that moves funds runs inside a single database transaction with
// the status change, so a second resolution attempt is a no-op rather than a
// double payout.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/antisybil"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/config"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/data"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/reputation"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/treasury"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/types"
)

var (
	ErrVerdictNotFound   = errors.New("verdict not found")
	ErrVerdictExists     = errors.New("verdict already registered")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrAlreadyVoted      = errors.New("you have already voted on this challenge")
	ErrAlreadyResolved   = errors.New("challenge already resolved")
	ErrVotingClosed      = errors.New("voting is not open for this challenge")
	ErrVotingStillOpen   = errors.New("voting period has not ended")
)

// Resolution describes the outcome of a settled challenge.
type Resolution struct {
	ChallengeID        string  `json:"challenge_id"`
	Outcome            string  `json:"outcome"` // ai_win|challenger_win|cancelled
	Winner             string  `json:"winner,omitempty"`
	PayoutAmount       float64 `json:"payout_amount,omitempty"`
	VotesForAI         float64 `json:"votes_for_ai"`
	VotesForChallenger float64 `json:"votes_for_challenger"`
	Reason             string  `json:"reason"`
}

const (
	OutcomeAIWin         = "ai_win"
	OutcomeChallengerWin = "challenger_win"
	OutcomeCancelled     = "cancelled"
)

// Gate is the admission filter consulted before votes and challenges.
// Satisfied by *antisybil.Gate.
type Gate interface {
	VerifyForVoting(ctx context.Context, wallet string) (bool, string, float64)
	VerifyForChallenge(ctx context.Context, wallet string, stake float64) (bool, string)
	Stats(wallet string) antisybil.WalletStats
	Prune()
}

type Engine struct {
	db       *gorm.DB
	store    *data.Store
	treasury *treasury.Treasury
	rep      *reputation.Tracker
	gate     Gate
	cfg      config.Challenge
	logger   zerolog.Logger
}

func New(db *gorm.DB, store *data.Store, tre *treasury.Treasury, rep *reputation.Tracker,
	gate Gate, cfg config.Challenge, logger zerolog.Logger) *Engine {
	return &Engine{
		db:       db,
		store:    store,
		treasury: tre,
		rep:      rep,
		gate:     gate,
		cfg:      cfg,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// RegisterVerdict records a verdict from the verification pipeline so it can
// be challenged. Write-once.
func (e *Engine) RegisterVerdict(verdictID, claim, domain, verdict string, confidence float64) (*types.Verdict, error) {
	switch verdict {
	case types.VerdictTrue, types.VerdictFalse, types.VerdictUncertain:
	default:
		return nil, errors.Errorf("invalid verdict %q", verdict)
	}
	if confidence < 0 || confidence > 1 {
		return nil, errors.Errorf("confidence %.2f out of range [0,1]", confidence)
	}

	now := time.Now().UTC()
	v := types.Verdict{
		VerdictID:         verdictID,
		Claim:             claim,
		Domain:            domain,
		Verdict:           verdict,
		Confidence:        confidence,
		ChallengeDeadline: now.Add(e.cfg.ChallengeWindow),
		CreatedAt:         now,
	}
	if err := e.db.Create(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrVerdictExists
		}
		return nil, errors.Wrapf(err, "failed to register verdict %s", verdictID)
	}
	e.logger.Info().Str("verdict_id", verdictID).Str("verdict", verdict).
		Msg("registered verdict for potential challenges")
	return &v, nil
}

// IsVerdictChallengeable reports whether a new challenge would be admitted
// (window open, no active challenge). Advisory only; SubmitChallenge
// re-checks under lock.
func (e *Engine) IsVerdictChallengeable(verdictID string) (bool, string) {
	v, err := e.store.GetVerdict(verdictID)
	if err != nil {
		return false, "Verdict not found"
	}
	if time.Now().After(v.ChallengeDeadline) {
		return false, "Challenge window has expired"
	}
	if _, err := e.store.ActiveChallengeForVerdict(verdictID); err == nil {
		return false, "Verdict already has an active challenge"
	}
	return true, "Verdict can be challenged"
}

// SubmitChallenge admits a new stake against a verdict. All preconditions are
// checked inside one transaction; failure of any leaves no row and no
// treasury reservation behind.
func (e *Engine) SubmitChallenge(ctx context.Context, verdictID, wallet string, stake float64,
	evidenceLinks []string, explanation string) (*types.Challenge, error) {

	if stake < e.cfg.MinStake {
		return nil, errors.Errorf("minimum stake is %.2f SOL", e.cfg.MinStake)
	}
	if stake > e.cfg.MaxStake {
		return nil, errors.Errorf("maximum stake is %.2f SOL", e.cfg.MaxStake)
	}
	if len(evidenceLinks) < e.cfg.MinEvidenceLinks {
		return nil, errors.Errorf("minimum %d evidence links required", e.cfg.MinEvidenceLinks)
	}
	if len(explanation) < e.cfg.MinExplanationLength {
		return nil, errors.Errorf("explanation must be at least %d characters", e.cfg.MinExplanationLength)
	}

	if ok, reason := e.gate.VerifyForChallenge(ctx, wallet, stake); !ok {
		return nil, errors.New(reason)
	}

	now := time.Now().UTC()
	ch := &types.Challenge{
		ChallengeID:      types.NewChallengeID(),
		VerdictID:        verdictID,
		ChallengerWallet: wallet,
		StakeAmount:      stake,
		EvidenceLinks:    types.EncodeEvidence(evidenceLinks),
		Explanation:      explanation,
		Status:           types.StatusVoting,
		VotingDeadline:   now.Add(e.cfg.VotingPeriod),
		CreatedAt:        now,
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		// Locking the verdict row serialises concurrent submissions against
		// the same verdict, so the one-active-challenge invariant holds.
		var v types.Verdict
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&v, "verdict_id = ?", verdictID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVerdictNotFound
			}
			return errors.Wrap(err, "failed to load verdict")
		}
		if now.After(v.ChallengeDeadline) {
			return errors.New("challenge window has expired for this verdict")
		}

		var active int64
		if err := tx.Model(&types.Challenge{}).
			Where("verdict_id = ? AND status IN ?", verdictID,
				[]string{types.StatusPending, types.StatusVoting}).
			Count(&active).Error; err != nil {
			return errors.Wrap(err, "failed to check active challenges")
		}
		if active > 0 {
			return errors.New("this verdict already has an active challenge")
		}

		var mine int64
		if err := tx.Model(&types.Challenge{}).
			Where("challenger_wallet = ? AND status IN ?", wallet,
				[]string{types.StatusPending, types.StatusVoting}).
			Count(&mine).Error; err != nil {
			return errors.Wrap(err, "failed to count challenger's active challenges")
		}
		if int(mine) >= e.cfg.MaxActivePerUser {
			return errors.Errorf("maximum %d active challenges allowed", e.cfg.MaxActivePerUser)
		}

		if err := e.treasury.Reserve(tx, ch, e.cfg.WinnerMultiplier); err != nil {
			return err
		}
		if err := tx.Create(ch).Error; err != nil {
			return errors.Wrap(err, "failed to create challenge")
		}
		return e.rep.RecordChallengeSubmitted(tx, wallet)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("challenge_id", ch.ChallengeID).
		Str("wallet", wallet).
		Float64("stake", stake).
		Msg("challenge submitted")
	return ch, nil
}

// CastVote records a weighted vote. The vote row, tally increment and voter
// stats commit together; the unique (challenge, voter) index rejects the
// loser of a double-vote race.
func (e *Engine) CastVote(ctx context.Context, challengeID, wallet, position, reasoning string) (*types.Vote, error) {
	if position != types.PositionAI && position != types.PositionChallenger {
		return nil, errors.Errorf("invalid position %q", position)
	}

	ch, err := e.store.GetChallenge(challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, errors.Wrap(err, "failed to load challenge")
	}
	if ch.Status != types.StatusVoting {
		return nil, ErrVotingClosed
	}
	if time.Now().After(ch.VotingDeadline) {
		return nil, errors.New("voting period has ended")
	}
	if ch.ChallengerWallet == wallet {
		return nil, errors.New("cannot vote on your own challenge")
	}

	ok, reason, trust := e.gate.VerifyForVoting(ctx, wallet)
	if !ok {
		return nil, errors.New(reason)
	}

	vote := &types.Vote{
		VoteID:      types.NewVoteID(),
		ChallengeID: challengeID,
		VoterWallet: wallet,
		Position:    position,
		Reasoning:   reasoning,
		CreatedAt:   time.Now().UTC(),
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		rep, err := e.rep.EnsureRecord(tx, wallet)
		if err != nil {
			return err
		}
		// Trust from the gate scales the earned portion of the weight; the
		// base 1.0 is untouched so weight never drops below one.
		vote.Weight = 1.0 + trust*(reputation.VoteWeight(rep)-1.0)

		if err := tx.Create(vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyVoted
			}
			return errors.Wrap(err, "failed to create vote")
		}

		tallyColumn := "votes_for_ai"
		if position == types.PositionChallenger {
			tallyColumn = "votes_for_challenger"
		}
		// Atomic increment guarded by status: a vote can never land on a
		// challenge that has already left voting.
		res := tx.Model(&types.Challenge{}).
			Where("challenge_id = ? AND status = ?", challengeID, types.StatusVoting).
			Updates(map[string]interface{}{
				tallyColumn:   gorm.Expr(tallyColumn+" + ?", vote.Weight),
				"voter_count": gorm.Expr("voter_count + 1"),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to update tally")
		}
		if res.RowsAffected == 0 {
			return ErrVotingClosed
		}
		return e.rep.RecordVoteCast(tx, wallet)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("vote_id", vote.VoteID).
		Str("challenge_id", challengeID).
		Str("position", position).
		Float64("weight", vote.Weight).
		Msg("vote cast")
	return vote, nil
}

// Resolve settles a challenge whose voting window has elapsed. Exactly-once:
// the status leaves `voting` under a row lock with a guarded update, so a
// concurrent or repeated call observes a terminal status and returns
// ErrAlreadyResolved without touching funds.
func (e *Engine) Resolve(challengeID string) (*Resolution, error) {
	var result *Resolution
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var ch types.Challenge
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ch, "challenge_id = ?", challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return errors.Wrap(err, "failed to load challenge")
		}
		if ch.Terminal() {
			return ErrAlreadyResolved
		}
		if ch.Status != types.StatusVoting {
			return errors.Errorf("challenge cannot be resolved (status: %s)", ch.Status)
		}
		if time.Now().Before(ch.VotingDeadline) {
			return ErrVotingStillOpen
		}

		r, err := e.settle(tx, &ch)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ForceResolve is the admin override: it skips quorum and deadline but goes
// through the identical settlement path, so funds and reputation move the
// same way they would in a normal resolution.
func (e *Engine) ForceResolve(challengeID, winner, reason string) (*Resolution, error) {
	if reason == "" {
		return nil, errors.New("a reason is required to force-resolve")
	}
	if winner != types.PositionAI && winner != types.PositionChallenger {
		return nil, errors.Errorf("invalid winner %q", winner)
	}

	var result *Resolution
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var ch types.Challenge
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ch, "challenge_id = ?", challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return errors.Wrap(err, "failed to load challenge")
		}
		if ch.Status != types.StatusVoting && ch.Status != types.StatusPending {
			return errors.Errorf("challenge cannot be resolved (status: %s)", ch.Status)
		}

		r, err := e.settleAs(tx, &ch, winner, fmt.Sprintf("Force-resolved: %s", reason))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Warn().
		Str("challenge_id", challengeID).
		Str("winner", winner).
		Str("reason", reason).
		Msg("challenge force-resolved")
	return result, nil
}

// settle decides the outcome from quorum and tallies, then applies it.
// Below-quorum and tied challenges are cancelled with a full refund.
func (e *Engine) settle(tx *gorm.DB, ch *types.Challenge) (*Resolution, error) {
	if ch.VoterCount < e.cfg.MinVoters {
		reason := fmt.Sprintf("Quorum not met: %d of %d required voters", ch.VoterCount, e.cfg.MinVoters)
		return e.cancel(tx, ch, reason)
	}
	if ch.VotesForAI == ch.VotesForChallenger {
		reason := fmt.Sprintf("Tied vote at %.2f, challenge voided and stake refunded", ch.VotesForAI)
		return e.cancel(tx, ch, reason)
	}

	winner := types.PositionAI
	if ch.VotesForChallenger > ch.VotesForAI {
		winner = types.PositionChallenger
	}
	reason := fmt.Sprintf("%s won with %.1f vs %.1f weighted votes",
		winner, winningTally(ch, winner), losingTally(ch, winner))
	return e.settleAs(tx, ch, winner, reason)
}

// settleAs applies a decided outcome: status change, treasury movement and
// reputation updates in the caller's transaction.
func (e *Engine) settleAs(tx *gorm.DB, ch *types.Challenge, winner, reason string) (*Resolution, error) {
	now := time.Now().UTC()
	res := &Resolution{
		ChallengeID:        ch.ChallengeID,
		Winner:             winner,
		VotesForAI:         ch.VotesForAI,
		VotesForChallenger: ch.VotesForChallenger,
		Reason:             reason,
	}

	var status string
	var payout float64
	if winner == types.PositionAI {
		status = types.StatusResolvedAIWin
		res.Outcome = OutcomeAIWin
	} else {
		status = types.StatusResolvedUserWin
		res.Outcome = OutcomeChallengerWin
		payout = ch.StakeAmount * e.cfg.WinnerMultiplier
		res.PayoutAmount = payout
	}

	if err := e.transition(tx, ch, status, reason, payout, now); err != nil {
		return nil, err
	}

	if winner == types.PositionAI {
		if err := e.treasury.SettleAIWin(tx, ch, e.cfg.WinnerMultiplier); err != nil {
			return nil, err
		}
	} else {
		if _, err := e.treasury.SettleChallengerWin(tx, ch, e.cfg.WinnerMultiplier); err != nil {
			return nil, err
		}
		// The pipeline's verdict was overturned by the community.
		if err := tx.Model(&types.Verdict{}).
			Where("verdict_id = ?", ch.VerdictID).
			Update("corrected", true).Error; err != nil {
			return nil, errors.Wrap(err, "failed to flag corrected verdict")
		}
	}

	votes, err := votesInTx(tx, ch.ChallengeID)
	if err != nil {
		return nil, err
	}
	if err := e.rep.ApplyResolution(tx, ch, winner, votes, payout); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("challenge_id", ch.ChallengeID).
		Str("outcome", res.Outcome).
		Float64("payout", payout).
		Msg("challenge settled")
	return res, nil
}

func (e *Engine) cancel(tx *gorm.DB, ch *types.Challenge, reason string) (*Resolution, error) {
	now := time.Now().UTC()
	if err := e.transition(tx, ch, types.StatusCancelled, reason, 0, now); err != nil {
		return nil, err
	}
	if err := e.treasury.Refund(tx, ch, e.cfg.WinnerMultiplier); err != nil {
		return nil, err
	}
	e.logger.Info().
		Str("challenge_id", ch.ChallengeID).
		Str("reason", reason).
		Msg("challenge cancelled, stake refunded")
	return &Resolution{
		ChallengeID:        ch.ChallengeID,
		Outcome:            OutcomeCancelled,
		VotesForAI:         ch.VotesForAI,
		VotesForChallenger: ch.VotesForChallenger,
		Reason:             reason,
	}, nil
}

// transition is the compare-and-set out of an active status. Zero rows
// affected means another writer won the race; the transaction aborts and no
// settlement happens twice.
func (e *Engine) transition(tx *gorm.DB, ch *types.Challenge, status, reason string, payout float64, now time.Time) error {
	res := tx.Model(&types.Challenge{}).
		Where("challenge_id = ? AND status IN ?", ch.ChallengeID,
			[]string{types.StatusPending, types.StatusVoting}).
		Updates(map[string]interface{}{
			"status":            status,
			"resolution_reason": reason,
			"payout_amount":     payout,
			"resolved_at":       now,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to transition challenge")
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyResolved
	}
	ch.Status = status
	ch.ResolutionReason = reason
	ch.PayoutAmount = payout
	ch.ResolvedAt = &now
	return nil
}

// CheckAndResolve sweeps every voting challenge past its deadline and settles
// it. One challenge failing never aborts the sweep.
func (e *Engine) CheckAndResolve() []Resolution {
	active, err := e.store.ActiveChallenges()
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to list active challenges")
		return nil
	}

	var out []Resolution
	now := time.Now()
	for _, ch := range active {
		if ch.Status != types.StatusVoting || now.Before(ch.VotingDeadline) {
			continue
		}
		res, err := e.Resolve(ch.ChallengeID)
		if err != nil {
			if errors.Is(err, ErrAlreadyResolved) {
				continue
			}
			e.logger.Error().Err(err).
				Str("challenge_id", ch.ChallengeID).
				Msg("failed to resolve expired challenge")
			continue
		}
		out = append(out, *res)
	}
	return out
}

func winningTally(ch *types.Challenge, winner string) float64 {
	if winner == types.PositionAI {
		return ch.VotesForAI
	}
	return ch.VotesForChallenger
}

func losingTally(ch *types.Challenge, winner string) float64 {
	if winner == types.PositionAI {
		return ch.VotesForChallenger
	}
	return ch.VotesForAI
}

func votesInTx(tx *gorm.DB, challengeID string) ([]types.Vote, error) {
	var votes []types.Vote
	err := tx.Where("challenge_id = ?", challengeID).Find(&votes).Error
	return votes, errors.Wrap(err, "failed to load votes for settlement")
}
