// dow-smoketest runs a full challenge lifecycle against an in-memory store:
// verdict registration, stake submission, community voting and settlement.
// Useful for verifying a build without a database or wallet RPC endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/antisybil"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/config"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/data"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/engine"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/reputation"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/treasury"
)

var (
	stakeFlag  = flag.Float64("stake", 5, "Challenger stake in SOL")
	votersFlag = flag.Int("voters", 5, "Number of community voters")
	sideFlag   = flag.String("side", "challenger", "Majority side: ai|challenger")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	db := data.MustDatabase(":memory:")
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := data.SeedTreasury(db, 1000); err != nil {
		log.Fatalf("seed treasury: %v", err)
	}

	cfg := config.DefaultChallenge()
	cfg.MinVoters = 3
	cfg.MinExplanationLength = 10
	cfg.VotingPeriod = time.Second

	store := data.NewStore(db, logger)
	gate := antisybil.NewGate(config.DefaultAntiSybil(), antisybil.StubSource{}, nil, logger)
	eng := engine.New(db, store, treasury.New(db, logger), reputation.NewTracker(db, logger), gate, cfg, logger)

	ctx := context.Background()

	if _, err := eng.RegisterVerdict("vrd_smoke", "The sky is green", "science", "FALSE", 0.95); err != nil {
		log.Fatalf("register verdict: %v", err)
	}

	ch, err := eng.SubmitChallenge(ctx, "vrd_smoke", "challenger-wallet", *stakeFlag,
		[]string{"https://example.com/a", "https://example.com/b"},
		"the evidence says otherwise")
	if err != nil {
		log.Fatalf("submit challenge: %v", err)
	}
	fmt.Printf("challenge %s submitted with stake %.2f\n", ch.ChallengeID, ch.StakeAmount)

	for i := 0; i < *votersFlag; i++ {
		position := *sideFlag
		if i == *votersFlag-1 && *votersFlag > 1 {
			position = otherSide(*sideFlag) // one dissenter keeps it honest
		}
		wallet := fmt.Sprintf("voter-%02d", i)
		if _, err := eng.CastVote(ctx, ch.ChallengeID, wallet, position, ""); err != nil {
			log.Fatalf("cast vote %s: %v", wallet, err)
		}
	}

	time.Sleep(cfg.VotingPeriod + 100*time.Millisecond)

	res, err := eng.Resolve(ch.ChallengeID)
	if err != nil {
		log.Fatalf("resolve: %v", err)
	}
	fmt.Printf("outcome=%s winner=%s payout=%.2f (%.1f vs %.1f)\n",
		res.Outcome, res.Winner, res.PayoutAmount, res.VotesForAI, res.VotesForChallenger)

	t, err := eng.GetTreasuryStats()
	if err != nil {
		log.Fatalf("treasury stats: %v", err)
	}
	fmt.Printf("treasury: balance=%.2f reserved=%.2f paid_out=%.2f\n",
		t.TotalBalance, t.ReservedForPayouts, t.TotalPaidOut)
}

func otherSide(s string) string {
	if s == "ai" {
		return "challenger"
	}
	return "ai"
}
