package main

import (
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/data"
)

func main() {
	dsn := os.Getenv("DOW_DSN")
	if dsn == "" {
		dsn = "storage/dow.db"
	}

	db := data.MustDatabase(dsn)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := data.SeedTreasury(db, 1000); err != nil {
		log.Fatalf("seed treasury: %v", err)
	}

	store := data.NewStore(db, zerolog.New(os.Stderr))

	active, err := store.ActiveChallenges()
	if err != nil {
		log.Fatalf("active challenges: %v", err)
	}
	log.Printf("Active challenges: %d", len(active))
	for _, ch := range active {
		log.Printf("  %s verdict=%s stake=%.2f deadline=%s",
			ch.ChallengeID, ch.VerdictID, ch.StakeAmount, ch.VotingDeadline)
	}

	txs, err := store.TreasuryTransactions(10)
	if err != nil {
		log.Fatalf("treasury transactions: %v", err)
	}
	log.Printf("Recent treasury transactions: %d", len(txs))
	for _, tx := range txs {
		log.Printf("  %s %s %.4f %s", tx.TxID, tx.TxType, tx.Amount, tx.Description)
	}
}
