package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Challenge lifecycle states.
const (
	StatusPending         = "pending"
	StatusVoting          = "voting"
	StatusResolvedAIWin   = "resolved_ai_win"
	StatusResolvedUserWin = "resolved_user_win"
	StatusCancelled       = "cancelled"
	StatusDisputed        = "disputed"
)

// Vote positions.
const (
	PositionAI         = "ai"
	PositionChallenger = "challenger"
)

// Verdict outcomes from the verification pipeline.
const (
	VerdictTrue      = "TRUE"
	VerdictFalse     = "FALSE"
	VerdictUncertain = "UNCERTAIN"
)

// Treasury transaction types.
const (
	TxStakeReceived = "stake_received"
	TxAIWinDeposit  = "ai_win_deposit"
	TxPayout        = "payout"
	TxRefund        = "refund"
	TxDeposit       = "deposit"
)

// Verdict is an AI verdict registered for potential challenges. Write-once
// except Corrected, which is set when a challenger wins.
type Verdict struct {
	VerdictID         string `gorm:"primaryKey;size:64"`
	Claim             string `gorm:"type:text;not null"`
	Domain            string `gorm:"size:64"`
	Verdict           string `gorm:"size:16;not null"` // TRUE|FALSE|UNCERTAIN
	Confidence        float64
	Corrected         bool `gorm:"default:false"`
	ChallengeDeadline time.Time
	CreatedAt         time.Time
}

// Challenge is an economic dispute staked against a verdict.
type Challenge struct {
	ChallengeID         string `gorm:"primaryKey;size:32"`
	VerdictID           string `gorm:"index;size:64;not null"`
	ChallengerWallet    string `gorm:"index;size:128;not null"`
	StakeAmount         float64
	EvidenceLinks       string `gorm:"type:text;not null"` // JSON array
	Explanation         string `gorm:"type:text;not null"`
	Status              string `gorm:"index;size:32;not null;default:'pending'"`
	VotesForAI          float64
	VotesForChallenger  float64
	VoterCount          int
	PayoutAmount        float64
	ResolutionReason    string `gorm:"size:255"`
	VotingDeadline      time.Time
	CreatedAt           time.Time
	ResolvedAt          *time.Time
	UpdatedAt           time.Time
}

// Active reports whether the challenge still occupies its verdict.
func (c Challenge) Active() bool {
	return c.Status == StatusPending || c.Status == StatusVoting
}

// Terminal reports whether the challenge has reached a final state.
func (c Challenge) Terminal() bool {
	switch c.Status {
	case StatusResolvedAIWin, StatusResolvedUserWin, StatusCancelled:
		return true
	}
	return false
}

// Evidence decodes the stored evidence link list.
func (c Challenge) Evidence() []string {
	var links []string
	_ = json.Unmarshal([]byte(c.EvidenceLinks), &links)
	return links
}

// EncodeEvidence serialises evidence links for storage.
func EncodeEvidence(links []string) string {
	b, _ := json.Marshal(links)
	return string(b)
}

// Vote is a single weighted community vote on a challenge. The composite
// unique index is the double-vote guard; it must hold even under races.
type Vote struct {
	VoteID      string `gorm:"primaryKey;size:32"`
	ChallengeID string `gorm:"uniqueIndex:idx_challenge_voter;size:32;not null"`
	VoterWallet string `gorm:"uniqueIndex:idx_challenge_voter;size:128;not null"`
	Position    string `gorm:"size:16;not null"` // ai|challenger
	Weight      float64
	Reasoning   string `gorm:"type:text"`
	CreatedAt   time.Time
}

// Treasury is the singleton fund backing all payouts.
// Invariant: ReservedForPayouts <= TotalBalance.
type Treasury struct {
	ID                 uint8 `gorm:"primaryKey"`
	TotalBalance       float64
	ReservedForPayouts float64
	TotalStakedAllTime float64
	TotalPaidOut       float64
	TotalChallenges    int
	AIWins             int
	ChallengerWins     int
	UpdatedAt          time.Time
}

// Available is the balance not earmarked for pending challenges.
func (t Treasury) Available() float64 {
	return t.TotalBalance - t.ReservedForPayouts
}

// TreasuryTransaction is an append-only audit log entry. Never updated.
type TreasuryTransaction struct {
	TxID        string `gorm:"primaryKey;size:32"`
	TxType      string `gorm:"index;size:32;not null"`
	Amount      float64
	ChallengeID string `gorm:"index;size:32"`
	Wallet      string `gorm:"size:128"`
	Description string `gorm:"size:255"`
	CreatedAt   time.Time
}

// VoterReputation is a running per-wallet profile, never deleted.
type VoterReputation struct {
	Wallet               string `gorm:"primaryKey;size:128"`
	Reputation           float64
	TotalVotes           int
	CorrectVotes         int
	AccuracyRate         float64
	TotalChallenges      int
	SuccessfulChallenges int
	TotalWon             float64
	UpdatedAt            time.Time
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func NewChallengeID() string { return newID("chl_") }
func NewVoteID() string      { return newID("vot_") }
func NewTxID() string        { return newID("tx_") }
