package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/configs"
	"github.com/abstractors/go-rewards/entities"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x970E8128AB834E8EAC17Ab8E3812F010678CF791"

type stubRewards struct {
	pendingErr  error
	calculated  int
	statsChains []uint64
}

func (s *stubRewards) CalculatePendingRewards(ctx context.Context, address string, chainID uint64) (*entities.PendingReward, error) {
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	return &entities.PendingReward{UserAddress: address, ChainID: chainID, Amount: "250"}, nil
}

func (s *stubRewards) GenerateClaimProof(ctx context.Context, address string, chainID uint64) (*entities.ClaimProof, error) {
	return &entities.ClaimProof{UserAddress: address, Amount: "250", Epoch: 474609, Proof: "0xsig", ChainID: chainID}, nil
}

func (s *stubRewards) VerifyClaimProof(ctx context.Context, claim entities.ClaimProof) entities.ClaimVerification {
	if claim.Proof != "0xsig" {
		return entities.InvalidClaim(entities.ReasonInvalidSignature)
	}
	return entities.ValidClaim()
}

func (s *stubRewards) CalculateAllRewards(ctx context.Context) (entities.RecalculationResult, error) {
	s.calculated++
	return entities.RecalculationResult{11124: {TotalFleetPower: "1000", HourlyEmission: "3.6"}}, nil
}

func (s *stubRewards) GetAggregateStats(ctx context.Context, chainID uint64) (*entities.ChainStats, error) {
	s.statsChains = append(s.statsChains, chainID)
	return &entities.ChainStats{ChainID: chainID}, nil
}

func (s *stubRewards) GetAllStats(ctx context.Context) []*entities.ChainStats {
	return []*entities.ChainStats{{ChainID: 11124}}
}

func (s *stubRewards) GetAggregateHistory(ctx context.Context, chainID uint64, limit int) ([]*entities.ChainAggregate, error) {
	list := []*entities.ChainAggregate{}
	for i := 0; i < limit; i++ {
		list = append(list, &entities.ChainAggregate{ChainID: chainID, TotalFleetPower: big.NewInt(int64(i))})
	}
	return list, nil
}

func (s *stubRewards) SignerAddress() string {
	return testAddress
}

type response struct {
	Status  string                `json:"status"`
	Message string                `json:"message"`
	Data    json.RawMessage       `json:"data"`
	Error   string                `json:"error"`
	Errors  []entities.FieldError `json:"errors"`
}

func newTestRouter(adminKey string) (http.Handler, *stubRewards, *prometheus.Registry) {
	cfg := &configs.MainConfiguration{
		LogLevel:       "error",
		AdminKey:       adminKey,
		DefaultChainID: 11124,
	}
	rewards := &stubRewards{}
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "rewardnode_test_total"}))
	return NewRestService(cfg, rewards, registry).Initialize(), rewards, registry
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) (int, response) {
	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp response
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestPing(t *testing.T) {
	h, _, _ := newTestRouter("")
	code, resp := do(t, h, http.MethodGet, "/api/ping", nil, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "pong", resp.Message)
	require.Equal(t, "success", resp.Status)
}

func TestHealthcheck(t *testing.T) {
	h, _, _ := newTestRouter("")
	code, resp := do(t, h, http.MethodGet, "/api/healthcheck", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &info))
	require.Equal(t, "healthy", info["status"])
	require.Equal(t, testAddress, info["signer"])
}

func TestPendingRewards(t *testing.T) {
	h, _, _ := newTestRouter("")
	code, resp := do(t, h, http.MethodGet, "/api/rewards/"+testAddress+"?chainId=2741", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var reward entities.PendingReward
	require.NoError(t, json.Unmarshal(resp.Data, &reward))
	require.Equal(t, "250", reward.Amount)
	require.Equal(t, uint64(2741), reward.ChainID)
}

func TestPendingRewardsValidation(t *testing.T) {
	h, _, _ := newTestRouter("")
	code, resp := do(t, h, http.MethodGet, "/api/rewards/not-an-address", nil, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "error", resp.Status)
	require.Equal(t, "Validation failed", resp.Error)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "address", resp.Errors[0].Field)
}

func TestPendingRewardsErrorStatus(t *testing.T) {
	h, rewards, _ := newTestRouter("")
	rewards.pendingErr = apperror.Transient("rpc unavailable", errors.New("timeout"))
	code, _ := do(t, h, http.MethodGet, "/api/rewards/"+testAddress, nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, code)

	rewards.pendingErr = apperror.Configuration("configuration not found for chain ID: 9")
	code, resp := do(t, h, http.MethodGet, "/api/rewards/"+testAddress+"?chainId=9", nil, nil)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Contains(t, resp.Error, "chain ID: 9")
}

func TestStatsRouteIsNotAnAddress(t *testing.T) {
	h, rewards, _ := newTestRouter("")
	code, resp := do(t, h, http.MethodGet, "/api/rewards/stats", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var stats []entities.ChainStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	require.Len(t, stats, 1)

	code, _ = do(t, h, http.MethodGet, "/api/rewards/stats?chainId=2741", nil, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []uint64{2741}, rewards.statsChains)

	code, resp = do(t, h, http.MethodGet, "/api/rewards/stats?chainId=2741&history=3", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var one struct {
		ChainID uint64 `json:"chainId"`
		History []struct {
			TotalFleetPower string `json:"totalFleetPower"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &one))
	require.Len(t, one.History, 3)
	require.Equal(t, "2", one.History[2].TotalFleetPower)

	code, resp = do(t, h, http.MethodGet, "/api/rewards/stats?history=3", nil, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "history", resp.Errors[0].Field)
}

func TestClaimProof(t *testing.T) {
	h, _, _ := newTestRouter("")
	code, resp := do(t, h, http.MethodPost, "/api/rewards/claim-proof", entities.ClaimProofRequest{UserAddress: testAddress}, nil)
	require.Equal(t, http.StatusOK, code)
	var proof entities.ClaimProof
	require.NoError(t, json.Unmarshal(resp.Data, &proof))
	require.Equal(t, uint64(11124), proof.ChainID)
	require.Equal(t, "0xsig", proof.Proof)
}

func TestClaimProofBadBody(t *testing.T) {
	h, _, _ := newTestRouter("")
	code, resp := do(t, h, http.MethodPost, "/api/rewards/claim-proof", "{not json", nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "body", resp.Errors[0].Field)

	code, resp = do(t, h, http.MethodPost, "/api/rewards/claim-proof", entities.ClaimProofRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Validation failed", resp.Error)
	require.Equal(t, []entities.FieldError{{Field: "userAddress", Message: `"userAddress" is required`}}, resp.Errors)

	code, resp = do(t, h, http.MethodPost, "/api/rewards/claim-proof", entities.ClaimProofRequest{UserAddress: "0x1234"}, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, []entities.FieldError{{Field: "userAddress", Message: `"userAddress" must be a valid Ethereum address`}}, resp.Errors)

	code, resp = do(t, h, http.MethodPost, "/api/rewards/verify", map[string]interface{}{}, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "claimData", resp.Errors[0].Field)
}

func TestVerify(t *testing.T) {
	h, _, _ := newTestRouter("")
	claim := entities.ClaimProof{UserAddress: testAddress, Amount: "250", Epoch: 474609, Proof: "0xsig"}
	code, resp := do(t, h, http.MethodPost, "/api/rewards/verify", entities.VerifyClaimRequest{ClaimData: &claim}, nil)
	require.Equal(t, http.StatusOK, code)
	var verification entities.ClaimVerification
	require.NoError(t, json.Unmarshal(resp.Data, &verification))
	require.True(t, verification.Valid)

	claim.Proof = "0xforged"
	code, resp = do(t, h, http.MethodPost, "/api/rewards/verify", entities.VerifyClaimRequest{ClaimData: &claim}, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &verification))
	require.False(t, verification.Valid)
	require.Equal(t, entities.ReasonInvalidSignature, verification.Reason)
}

func TestVerifyAcceptsStringEpoch(t *testing.T) {
	h, _, _ := newTestRouter("")
	body := `{"claimData":{"userAddress":"` + testAddress + `","amount":"250","epoch":"474609","proof":"0xsig","chainId":11124}}`
	code, resp := do(t, h, http.MethodPost, "/api/rewards/verify", body, nil)
	require.Equal(t, http.StatusOK, code)
	var verification entities.ClaimVerification
	require.NoError(t, json.Unmarshal(resp.Data, &verification))
	require.True(t, verification.Valid)

	code, resp = do(t, h, http.MethodPost, "/api/rewards/verify", `{"claimData":{"epoch":"soon"}}`, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "body", resp.Errors[0].Field)
}

func TestAdminCalculateRequiresKey(t *testing.T) {
	h, rewards, _ := newTestRouter("s3cret")
	code, resp := do(t, h, http.MethodPost, "/api/admin/rewards/calculate", nil, nil)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "error", resp.Status)
	require.Equal(t, "Unauthorized", resp.Error)

	code, _ = do(t, h, http.MethodPost, "/api/admin/rewards/calculate", nil, map[string]string{AdminKeyHeader: "wrong"})
	require.Equal(t, http.StatusUnauthorized, code)
	require.Zero(t, rewards.calculated)

	code, resp = do(t, h, http.MethodPost, "/api/admin/rewards/calculate", nil, map[string]string{AdminKeyHeader: "s3cret"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, rewards.calculated)
	var result map[string]entities.RecalculationEntry
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Equal(t, "1000", result["11124"].TotalFleetPower)
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	h, rewards, _ := newTestRouter("")
	code, _ := do(t, h, http.MethodPost, "/api/admin/rewards/calculate", nil, map[string]string{AdminKeyHeader: ""})
	require.Equal(t, http.StatusUnauthorized, code)
	require.Zero(t, rewards.calculated)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := newTestRouter("")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "rewardnode_test_total")
}

func TestCORSPreflight(t *testing.T) {
	h, _, _ := newTestRouter("")
	req := httptest.NewRequest(http.MethodOptions, "/api/rewards/claim-proof", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
