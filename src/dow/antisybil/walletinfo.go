package antisybil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// WalletInfo describes the on-chain footprint of a wallet, as far as the
// eligibility checks care about it.
type WalletInfo struct {
	Address string  `json:"address"`
	AgeDays int     `json:"age_days"`
	Balance float64 `json:"balance"`
	TxCount int     `json:"tx_count"`
}

// Source fetches wallet attributes. Implementations must respect the context
// deadline; the gate treats any error as source degradation.
type Source interface {
	WalletInfo(ctx context.Context, address string) (*WalletInfo, error)
}

// RPCSource queries a Solana-style JSON-RPC endpoint for balance and
// signature history.
type RPCSource struct {
	endpoint   string
	httpClient *http.Client
}

func NewRPCSource(endpoint string) *RPCSource {
	return &RPCSource{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

func (s *RPCSource) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "rpc %s failed", method)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("rpc %s: status %d: %s", method, resp.StatusCode, string(data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *RPCSource) WalletInfo(ctx context.Context, address string) (*WalletInfo, error) {
	var balResp struct {
		Result struct {
			Value int64 `json:"value"`
		} `json:"result"`
	}
	if err := s.call(ctx, "getBalance", []interface{}{address}, &balResp); err != nil {
		return nil, err
	}

	var sigResp struct {
		Result []struct {
			BlockTime int64 `json:"blockTime"`
		} `json:"result"`
	}
	params := []interface{}{address, map[string]int{"limit": 100}}
	if err := s.call(ctx, "getSignaturesForAddress", params, &sigResp); err != nil {
		return nil, err
	}

	ageDays := 0
	if n := len(sigResp.Result); n > 0 {
		oldest := sigResp.Result[n-1].BlockTime
		ageDays = int(time.Since(time.Unix(oldest, 0)).Hours() / 24)
	}

	return &WalletInfo{
		Address: address,
		AgeDays: ageDays,
		Balance: float64(balResp.Result.Value) / 1e9, // lamports -> SOL
		TxCount: len(sigResp.Result),
	}, nil
}

// StubSource returns deterministic wallet data derived from the address.
// Used when no RPC endpoint is configured (local and test deployments).
type StubSource struct{}

func (StubSource) WalletInfo(_ context.Context, address string) (*WalletInfo, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(address))
	v := h.Sum32()
	return &WalletInfo{
		Address: address,
		AgeDays: 30 + int(v%365),
		Balance: 1.0 + float64(v%100)/10,
		TxCount: 10 + int(v%100),
	}, nil
}
