// Minimal end-to-end integration test for the DOW challenge API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	baseURL   = getenv("API_URL", "http://localhost:8090/v1")
	jwtSecret = getenv("JWT_SECRET", "dev-secret-do-not-deploy")

	// Fixed name: the stub wallet source derives balance from the address, and
	// this one covers the staked amount plus fees.
	challenger = "ChallengerOne"
	voters     = []string{"VoterA", "VoterB", "VoterC"}
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	token := adminToken()

	verdictID := "vrd_" + uuid.NewString()[:12]
	registerVerdict(token, verdictID)
	checkChallengeable(verdictID)

	chlID := submitChallenge(verdictID)
	for _, v := range voters {
		castVote(chlID, v)
	}
	checkVotes(chlID, len(voters))

	checkTreasury()
	checkLeaderboards()

	forceResolve(token, chlID)
	checkResolved(chlID)

	fmt.Println("✓ all endpoints passed")
}

// ----------------------------- admin auth

func adminToken() string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"addr": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	return signed
}

// ----------------------------- verdicts

func registerVerdict(tok, id string) {
	doAuth(tok, "POST", "/admin/verdicts", map[string]any{
		"verdictId":  id,
		"claim":      "integration-test claim " + uuid.NewString(),
		"domain":     "science",
		"verdict":    "FALSE",
		"confidence": 0.9,
	}, nil, http.StatusCreated)
}

func checkChallengeable(id string) {
	var resp struct {
		Challengeable bool   `json:"challengeable"`
		Reason        string `json:"reason"`
	}
	doJSON("GET", "/verdicts/"+id+"/challengeable", nil, &resp, http.StatusOK)
	if !resp.Challengeable {
		log.Fatalf("verdict not challengeable: %s", resp.Reason)
	}
}

// ----------------------------- challenges

func submitChallenge(verdictID string) string {
	var resp struct {
		Challenge struct {
			ChallengeID string `json:"ChallengeID"`
		} `json:"challenge"`
	}
	doJSON("POST", "/challenges", map[string]any{
		"verdictId":     verdictID,
		"wallet":        challenger,
		"stakeAmount":   2.5,
		"evidenceLinks": []string{"https://example.org/a", "https://example.org/b"},
		"explanation":   "The cited study was retracted in 2024 and the figure quoted no longer holds up under the corrected data.",
	}, &resp, http.StatusCreated)
	if resp.Challenge.ChallengeID == "" {
		log.Fatal("submit: empty challenge id")
	}
	return resp.Challenge.ChallengeID
}

// ----------------------------- votes

func castVote(chlID, wallet string) {
	doJSON("POST", "/challenges/"+chlID+"/votes", map[string]any{
		"wallet":    wallet,
		"position":  "challenger",
		"reasoning": "evidence checks out",
	}, nil, http.StatusCreated)
}

func checkVotes(chlID string, want int) {
	var resp struct {
		Count int `json:"count"`
	}
	doJSON("GET", "/challenges/"+chlID+"/votes", nil, &resp, http.StatusOK)
	if resp.Count != want {
		log.Fatalf("votes: want %d got %d", want, resp.Count)
	}
}

// ----------------------------- treasury and leaderboards

func checkTreasury() {
	var resp struct {
		TotalBalance float64 `json:"total_balance"`
	}
	doJSON("GET", "/treasury", nil, &resp, http.StatusOK)
	if resp.TotalBalance <= 0 {
		log.Fatal("treasury: empty balance")
	}
}

func checkLeaderboards() {
	doJSON("GET", "/leaderboard/challengers", nil, nil, http.StatusOK)
	doJSON("GET", "/leaderboard/voters", nil, nil, http.StatusOK)
}

// ----------------------------- resolution

func forceResolve(tok, chlID string) {
	doAuth(tok, "POST", "/admin/challenges/"+chlID+"/force-resolve", map[string]any{
		"winner": "challenger",
		"reason": "integration test settlement",
	}, nil, http.StatusOK)
}

func checkResolved(chlID string) {
	var resp struct {
		Status string `json:"Status"`
	}
	doJSON("GET", "/challenges/"+chlID, nil, &resp, http.StatusOK)
	if resp.Status != "resolved_user_win" {
		log.Fatalf("challenge: want resolved_user_win got %s", resp.Status)
	}
}

// ----------------------------- helpers

func doAuth(token, method, path string, body, out any, want int) {
	doReq(method, path, token, body, out, want)
}

func doJSON(method, path string, body, out any, want int) {
	doReq(method, path, "", body, out, want)
}

func doReq(method, path, token string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
