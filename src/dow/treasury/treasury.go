// Package treasury is the sole authority over the shared fund backing
// challenge payouts. Every balance mutation is committed together with its
// audit log entry; a crash can never separate the two.
package treasury

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/types"
)

var (
	// ErrInsufficientFunds rejects a reservation the treasury cannot back.
	ErrInsufficientFunds = errors.New("insufficient treasury funds to back this challenge")
	// ErrIntegrity indicates reserved funds exceed the balance. This is a
	// prior atomicity bug, not a recoverable condition.
	ErrIntegrity = errors.New("treasury integrity violation: reserved exceeds balance")
)

type Treasury struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func New(db *gorm.DB, logger zerolog.Logger) *Treasury {
	return &Treasury{
		db:     db,
		logger: logger.With().Str("component", "treasury").Logger(),
	}
}

// lockRow loads the singleton row under FOR UPDATE so the check-and-increment
// in Reserve is a single atomic step. SQLite serialises writers instead.
func lockRow(tx *gorm.DB) (*types.Treasury, error) {
	var row types.Treasury
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = 1").Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock treasury row")
	}
	return &row, nil
}

func checkIntegrity(row *types.Treasury) error {
	if row.ReservedForPayouts < 0 || row.ReservedForPayouts > row.TotalBalance {
		return errors.Wrapf(ErrIntegrity, "balance=%.4f reserved=%.4f",
			row.TotalBalance, row.ReservedForPayouts)
	}
	return nil
}

func appendTx(tx *gorm.DB, txType string, amount float64, challengeID, wallet, description string) error {
	rec := types.TreasuryTransaction{
		TxID:        types.NewTxID(),
		TxType:      txType,
		Amount:      amount,
		ChallengeID: challengeID,
		Wallet:      wallet,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	return errors.Wrap(tx.Create(&rec).Error, "failed to append treasury transaction")
}

// Liability is what the treasury risks beyond the stake it takes back from a
// losing challenger.
func Liability(stake, multiplier float64) float64 {
	return stake * (multiplier - 1)
}

// Reserve earmarks funds for a potential payout. Must run inside the
// submission transaction: on any later precondition failure the whole commit
// rolls back and no reservation survives.
func (t *Treasury) Reserve(tx *gorm.DB, ch *types.Challenge, multiplier float64) error {
	row, err := lockRow(tx)
	if err != nil {
		return err
	}
	liability := Liability(ch.StakeAmount, multiplier)
	if row.Available() < liability {
		return ErrInsufficientFunds
	}
	row.ReservedForPayouts += liability
	row.TotalStakedAllTime += ch.StakeAmount
	row.TotalChallenges++
	row.UpdatedAt = time.Now().UTC()
	if err := tx.Save(row).Error; err != nil {
		return errors.Wrap(err, "failed to update treasury reservation")
	}
	return appendTx(tx, types.TxStakeReceived, ch.StakeAmount, ch.ChallengeID,
		ch.ChallengerWallet, fmt.Sprintf("Stake for challenge %s", ch.ChallengeID))
}

// SettleAIWin releases the reservation and absorbs the forfeited stake.
func (t *Treasury) SettleAIWin(tx *gorm.DB, ch *types.Challenge, multiplier float64) error {
	row, err := lockRow(tx)
	if err != nil {
		return err
	}
	row.ReservedForPayouts -= Liability(ch.StakeAmount, multiplier)
	row.TotalBalance += ch.StakeAmount
	row.AIWins++
	row.UpdatedAt = time.Now().UTC()
	if err := checkIntegrity(row); err != nil {
		return err
	}
	if err := tx.Save(row).Error; err != nil {
		return errors.Wrap(err, "failed to settle ai win")
	}
	return appendTx(tx, types.TxAIWinDeposit, ch.StakeAmount, ch.ChallengeID,
		ch.ChallengerWallet, fmt.Sprintf("Forfeited stake from challenge %s", ch.ChallengeID))
}

// SettleChallengerWin releases the reservation and pays out the net amount.
// Returns the gross payout (stake * multiplier).
func (t *Treasury) SettleChallengerWin(tx *gorm.DB, ch *types.Challenge, multiplier float64) (float64, error) {
	row, err := lockRow(tx)
	if err != nil {
		return 0, err
	}
	liability := Liability(ch.StakeAmount, multiplier)
	payout := ch.StakeAmount * multiplier
	row.ReservedForPayouts -= liability
	row.TotalBalance -= liability
	row.TotalPaidOut += payout
	row.ChallengerWins++
	row.UpdatedAt = time.Now().UTC()
	if err := checkIntegrity(row); err != nil {
		return 0, err
	}
	if err := tx.Save(row).Error; err != nil {
		return 0, errors.Wrap(err, "failed to settle challenger win")
	}
	err = appendTx(tx, types.TxPayout, payout, ch.ChallengeID,
		ch.ChallengerWallet, fmt.Sprintf("Payout for winning challenge %s", ch.ChallengeID))
	return payout, err
}

// Refund releases the reservation with no forfeiture and no payout
// (quorum-failure cancellation).
func (t *Treasury) Refund(tx *gorm.DB, ch *types.Challenge, multiplier float64) error {
	row, err := lockRow(tx)
	if err != nil {
		return err
	}
	row.ReservedForPayouts -= Liability(ch.StakeAmount, multiplier)
	row.UpdatedAt = time.Now().UTC()
	if err := checkIntegrity(row); err != nil {
		return err
	}
	if err := tx.Save(row).Error; err != nil {
		return errors.Wrap(err, "failed to release reservation")
	}
	return appendTx(tx, types.TxRefund, ch.StakeAmount, ch.ChallengeID,
		ch.ChallengerWallet, fmt.Sprintf("Stake refund for cancelled challenge %s", ch.ChallengeID))
}

// AddFunds deposits into the fund. Privileged operation.
func (t *Treasury) AddFunds(amount float64, description string) error {
	if amount <= 0 {
		return errors.New("deposit amount must be positive")
	}
	return t.db.Transaction(func(tx *gorm.DB) error {
		row, err := lockRow(tx)
		if err != nil {
			return err
		}
		row.TotalBalance += amount
		row.UpdatedAt = time.Now().UTC()
		if err := tx.Save(row).Error; err != nil {
			return errors.Wrap(err, "failed to deposit funds")
		}
		t.logger.Info().Float64("amount", amount).Msg("treasury deposit")
		return appendTx(tx, types.TxDeposit, amount, "", "", description)
	})
}

// Stats returns the current treasury snapshot.
func (t *Treasury) Stats() (*types.Treasury, error) {
	var row types.Treasury
	if err := t.db.First(&row, "id = 1").Error; err != nil {
		return nil, errors.Wrap(err, "failed to load treasury")
	}
	return &row, nil
}
