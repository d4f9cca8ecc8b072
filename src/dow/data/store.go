package data

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/types"
)

// Store provides read access to challenges, votes and reputation. All
// mutations go through engine/treasury transactions, not through here.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// DB exposes the underlying handle for transactional callers.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) GetChallenge(challengeID string) (*types.Challenge, error) {
	var ch types.Challenge
	if err := s.db.First(&ch, "challenge_id = ?", challengeID).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// ActiveChallenges returns challenges still occupying their verdict, oldest
// first so the resolution sweep settles in submission order.
func (s *Store) ActiveChallenges() ([]types.Challenge, error) {
	var out []types.Challenge
	err := s.db.Where("status IN ?", []string{types.StatusPending, types.StatusVoting}).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query active challenges")
	}
	return out, nil
}

func (s *Store) ChallengesByWallet(wallet string) ([]types.Challenge, error) {
	var out []types.Challenge
	err := s.db.Where("challenger_wallet = ?", wallet).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query challenges for %s", wallet)
	}
	return out, nil
}

func (s *Store) ChallengesByVerdict(verdictID string) ([]types.Challenge, error) {
	var out []types.Challenge
	err := s.db.Where("verdict_id = ?", verdictID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query challenges for verdict %s", verdictID)
	}
	return out, nil
}

// ActiveChallengeForVerdict returns the challenge currently occupying the
// verdict, or gorm.ErrRecordNotFound.
func (s *Store) ActiveChallengeForVerdict(verdictID string) (*types.Challenge, error) {
	var ch types.Challenge
	err := s.db.Where("verdict_id = ? AND status IN ?",
		verdictID, []string{types.StatusPending, types.StatusVoting}).
		First(&ch).Error
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *Store) CountActiveByWallet(wallet string) (int64, error) {
	var n int64
	err := s.db.Model(&types.Challenge{}).
		Where("challenger_wallet = ? AND status IN ?",
			wallet, []string{types.StatusPending, types.StatusVoting}).
		Count(&n).Error
	return n, err
}

func (s *Store) VotesForChallenge(challengeID string) ([]types.Vote, error) {
	var out []types.Vote
	err := s.db.Where("challenge_id = ?", challengeID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query votes for %s", challengeID)
	}
	return out, nil
}

func (s *Store) GetVerdict(verdictID string) (*types.Verdict, error) {
	var v types.Verdict
	if err := s.db.First(&v, "verdict_id = ?", verdictID).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) GetReputation(wallet string) (*types.VoterReputation, error) {
	var rep types.VoterReputation
	if err := s.db.First(&rep, "wallet = ?", wallet).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

// TopChallengers ranks wallets by lifetime winnings.
func (s *Store) TopChallengers(limit int) ([]types.VoterReputation, error) {
	var out []types.VoterReputation
	err := s.db.Where("total_challenges > 0").
		Order("total_won DESC").
		Limit(limit).
		Find(&out).Error
	return out, errors.Wrap(err, "failed to query challenger leaderboard")
}

// TopVoters ranks wallets by accuracy. Wallets with fewer than minVotes are
// excluded so a single lucky vote does not top the board.
func (s *Store) TopVoters(limit, minVotes int) ([]types.VoterReputation, error) {
	var out []types.VoterReputation
	err := s.db.Where("total_votes >= ?", minVotes).
		Order("accuracy_rate DESC, total_votes DESC").
		Limit(limit).
		Find(&out).Error
	return out, errors.Wrap(err, "failed to query voter leaderboard")
}

func (s *Store) TreasuryTransactions(limit int) ([]types.TreasuryTransaction, error) {
	var out []types.TreasuryTransaction
	q := s.db.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query treasury transactions")
	}
	return out, nil
}
