package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DSN           string // sqlite file path or mysql DSN (user:pass@tcp(...)/db)
	RedisURL      string // optional; empty disables the redis wallet cache
	WalletRPCURL  string // optional; empty selects the stub wallet source
	JWTSecret     string
	Port          string
	SweepInterval time.Duration

	Challenge Challenge
	AntiSybil AntiSybil
}

// Challenge holds the economic parameters of the dispute market.
type Challenge struct {
	MinStake               float64
	MaxStake               float64
	ChallengeWindow        time.Duration // after verdict registration
	VotingPeriod           time.Duration
	MinVoters              int // quorum
	MinEvidenceLinks       int
	MinExplanationLength   int
	WinnerMultiplier       float64
	MaxActivePerUser       int
	InitialTreasuryBalance float64
}

// AntiSybil holds the wallet eligibility thresholds.
type AntiSybil struct {
	MinWalletAgeDays    int
	MinSolBalance       float64
	MinTransactionCount int
	MaxVotesPerHour     int
	MaxChallengesPerDay int
	NewWalletTrust      float64
	FeeBuffer           float64
	CacheTTL            time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getfloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func Load() Config {
	sweep, _ := strconv.Atoi(getenv("SWEEP_INTERVAL", "300"))
	return Config{
		DSN:           getenv("DOW_DSN", "storage/dow.db"),
		RedisURL:      os.Getenv("REDIS_URL"),
		WalletRPCURL:  os.Getenv("WALLET_RPC_URL"),
		JWTSecret:     getenv("JWT_SECRET", "dev-secret-do-not-deploy"),
		Port:          getenv("PORT", "8090"),
		SweepInterval: time.Duration(sweep) * time.Second,
		Challenge:     DefaultChallenge(),
		AntiSybil:     DefaultAntiSybil(),
	}
}

func DefaultChallenge() Challenge {
	return Challenge{
		MinStake:               getfloat("MIN_STAKE", 1.0),
		MaxStake:               getfloat("MAX_STAKE", 100.0),
		ChallengeWindow:        time.Duration(getint("CHALLENGE_WINDOW_HOURS", 72)) * time.Hour,
		VotingPeriod:           time.Duration(getint("VOTING_PERIOD_HOURS", 48)) * time.Hour,
		MinVoters:              getint("MIN_VOTERS", 50),
		MinEvidenceLinks:       getint("MIN_EVIDENCE_LINKS", 2),
		MinExplanationLength:   getint("MIN_EXPLANATION_LENGTH", 100),
		WinnerMultiplier:       getfloat("WINNER_MULTIPLIER", 2.0),
		MaxActivePerUser:       getint("MAX_ACTIVE_CHALLENGES", 3),
		InitialTreasuryBalance: getfloat("TREASURY_BALANCE", 1000.0),
	}
}

func DefaultAntiSybil() AntiSybil {
	return AntiSybil{
		MinWalletAgeDays:    getint("MIN_WALLET_AGE_DAYS", 7),
		MinSolBalance:       getfloat("MIN_SOL_BALANCE", 0.01),
		MinTransactionCount: getint("MIN_TX_COUNT", 5),
		MaxVotesPerHour:     getint("MAX_VOTES_PER_HOUR", 10),
		MaxChallengesPerDay: getint("MAX_CHALLENGES_PER_DAY", 3),
		NewWalletTrust:      0.3,
		FeeBuffer:           0.1,
		CacheTTL:            time.Hour,
	}
}
