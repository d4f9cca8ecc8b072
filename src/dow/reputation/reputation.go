// Package reputation maintains per-wallet trust profiles and derives vote
// weights from them. Weights are frozen at cast time; resolution updates only
// affect future votes.
package reputation

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/types"
)

const (
	baseline           = 100.0
	baselineAccuracy   = 0.5
	correctVoteReward  = 10.0
	wrongVotePenalty   = 5.0
	challengerWinBonus = 50.0

	// Weight formula bounds. Weight must stay >= 1 and monotone in both
	// reputation and accuracy.
	baseWeight       = 1.0
	maxRepComponent  = 1.5
	maxAccComponent  = 0.5
	minVoteHistory  = 10 // votes before the accuracy bonus applies
)

// MaxWeight is the ceiling of the vote weight formula.
const MaxWeight = baseWeight + maxRepComponent + maxAccComponent

type Tracker struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewTracker(db *gorm.DB, logger zerolog.Logger) *Tracker {
	return &Tracker{
		db:     db,
		logger: logger.With().Str("component", "reputation").Logger(),
	}
}

// EnsureRecord loads the wallet's profile, creating the baseline record on
// first contact. Runs inside the caller's transaction.
func (t *Tracker) EnsureRecord(tx *gorm.DB, wallet string) (*types.VoterReputation, error) {
	var rep types.VoterReputation
	err := tx.Where(types.VoterReputation{Wallet: wallet}).
		Attrs(types.VoterReputation{
			Wallet:       wallet,
			Reputation:   baseline,
			AccuracyRate: baselineAccuracy,
		}).
		FirstOrCreate(&rep).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to ensure reputation for %s", wallet)
	}
	return &rep, nil
}

// VoteWeight derives the frozen weight for a new vote.
//
//	weight = 1.0 + min(sqrt(reputation)/10, 1.5) + accuracy*0.5
//
// The sqrt keeps a single high-reputation voter from dominating; the accuracy
// component only applies once the voter has a real history.
func VoteWeight(rep *types.VoterReputation) float64 {
	w := baseWeight
	if rep.Reputation > 0 {
		w += math.Min(math.Sqrt(rep.Reputation)/10, maxRepComponent)
	}
	if rep.TotalVotes >= minVoteHistory {
		w += math.Min(rep.AccuracyRate, 1.0) * maxAccComponent
	}
	return w
}

// RecordVoteCast bumps the wallet's vote count inside the cast transaction.
func (t *Tracker) RecordVoteCast(tx *gorm.DB, wallet string) error {
	rep, err := t.lock(tx, wallet)
	if err != nil {
		return err
	}
	rep.TotalVotes++
	rep.AccuracyRate = accuracy(rep.CorrectVotes, rep.TotalVotes)
	rep.UpdatedAt = time.Now().UTC()
	return errors.Wrapf(tx.Save(rep).Error, "failed to record vote for %s", wallet)
}

// RecordChallengeSubmitted bumps the wallet's challenge count.
func (t *Tracker) RecordChallengeSubmitted(tx *gorm.DB, wallet string) error {
	rep, err := t.lock(tx, wallet)
	if err != nil {
		return err
	}
	rep.TotalChallenges++
	rep.UpdatedAt = time.Now().UTC()
	return errors.Wrapf(tx.Save(rep).Error, "failed to record challenge for %s", wallet)
}

// ApplyResolution settles reputation for every participant of a resolved
// challenge: voters on the winning side gain, the losing side pays, and a
// winning challenger gets the fixed bonus plus earnings. Each record is read
// fresh under lock in the same transaction so repeated resolutions of other
// challenges cannot work from stale denominators.
func (t *Tracker) ApplyResolution(tx *gorm.DB, ch *types.Challenge, winner string, votes []types.Vote, payout float64) error {
	for _, v := range votes {
		rep, err := t.lock(tx, v.VoterWallet)
		if err != nil {
			return err
		}
		if v.Position == winner {
			rep.CorrectVotes++
			rep.Reputation += correctVoteReward
		} else {
			rep.Reputation = math.Max(0, rep.Reputation-wrongVotePenalty)
		}
		rep.AccuracyRate = accuracy(rep.CorrectVotes, rep.TotalVotes)
		rep.UpdatedAt = time.Now().UTC()
		if err := tx.Save(rep).Error; err != nil {
			return errors.Wrapf(err, "failed to update voter %s", v.VoterWallet)
		}
	}

	if winner == types.PositionChallenger {
		rep, err := t.lock(tx, ch.ChallengerWallet)
		if err != nil {
			return err
		}
		rep.Reputation += challengerWinBonus
		rep.SuccessfulChallenges++
		rep.TotalWon += payout
		rep.UpdatedAt = time.Now().UTC()
		if err := tx.Save(rep).Error; err != nil {
			return errors.Wrapf(err, "failed to update challenger %s", ch.ChallengerWallet)
		}
	}
	return nil
}

func (t *Tracker) lock(tx *gorm.DB, wallet string) (*types.VoterReputation, error) {
	if _, err := t.EnsureRecord(tx, wallet); err != nil {
		return nil, err
	}
	var rep types.VoterReputation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rep, "wallet = ?", wallet).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock reputation for %s", wallet)
	}
	return &rep, nil
}

func accuracy(correct, total int) float64 {
	if total == 0 {
		return baselineAccuracy
	}
	return float64(correct) / float64(total)
}
