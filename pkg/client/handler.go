package client

import (
	"context"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/configs"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/pkg/log"
)

var logger = &log.Logger

type RequestType string

const (
	GetNodeInfoRequest       RequestType = "READ:info"
	GetPendingRewardsRequest RequestType = "READ:rewards/:address"
	WriteClaimProofRequest   RequestType = "WRITE:rewards/claim-proof"
	VerifyClaimRequest       RequestType = "WRITE:rewards/verify"
	GetRewardStatsRequest    RequestType = "READ:rewards/stats"
	CalculateRewardsRequest  RequestType = "WRITE:admin/rewards/calculate"
)

// RewardsAPI is the reward service as seen by clients.
type RewardsAPI interface {
	CalculatePendingRewards(ctx context.Context, address string, chainID uint64) (*entities.PendingReward, error)
	GenerateClaimProof(ctx context.Context, address string, chainID uint64) (*entities.ClaimProof, error)
	VerifyClaimProof(ctx context.Context, claim entities.ClaimProof) entities.ClaimVerification
	CalculateAllRewards(ctx context.Context) (entities.RecalculationResult, error)
	GetAggregateStats(ctx context.Context, chainID uint64) (*entities.ChainStats, error)
	GetAllStats(ctx context.Context) []*entities.ChainStats
	GetAggregateHistory(ctx context.Context, chainID uint64, limit int) ([]*entities.ChainAggregate, error)
	SignerAddress() string
}

type ClientRequestHandler struct {
	Cfg     *configs.MainConfiguration
	Rewards RewardsAPI
}

var (
	ErrorInvalidRequest error = apperror.Internal("invalid request type")
)

func NewClientRequestHandler(cfg *configs.MainConfiguration, rewards RewardsAPI) *ClientRequestHandler {
	return &ClientRequestHandler{
		Cfg:     cfg,
		Rewards: rewards,
	}
}

// Process validates a request and hands it to the reward service. params
// carries path and query values; payload is the decoded body, if any.
func (p *ClientRequestHandler) Process(ctx context.Context, request RequestType, params map[string]string, payload interface{}) (interface{}, error) {
	switch request {
	case GetNodeInfoRequest:
		return Info(p.Cfg, p.Rewards), nil

	case GetPendingRewardsRequest:
		chainID, err := ParseChainID(params["chainId"], p.Cfg.DefaultChainID)
		if err != nil {
			return nil, err
		}
		req := entities.PendingRewardsRequest{Address: params["address"]}
		if err := Validate(&req); err != nil {
			return nil, err
		}
		return p.Rewards.CalculatePendingRewards(ctx, req.Address, chainID)

	case WriteClaimProofRequest:
		req, ok := payload.(*entities.ClaimProofRequest)
		if !ok || req == nil {
			return nil, NewValidationError(entities.FieldError{Field: "body", Message: "request body is required"})
		}
		if err := Validate(req); err != nil {
			return nil, err
		}
		if req.ChainID == 0 {
			req.ChainID = p.Cfg.DefaultChainID
		}
		return p.Rewards.GenerateClaimProof(ctx, req.UserAddress, req.ChainID)

	case VerifyClaimRequest:
		req, ok := payload.(*entities.VerifyClaimRequest)
		if !ok || req == nil {
			return nil, NewValidationError(entities.FieldError{Field: "body", Message: "request body is required"})
		}
		if err := Validate(req); err != nil {
			return nil, err
		}
		return p.Rewards.VerifyClaimProof(ctx, *req.ClaimData), nil

	case GetRewardStatsRequest:
		return GetRewardStats(ctx, p.Rewards, params["chainId"], params["history"])

	case CalculateRewardsRequest:
		return p.Rewards.CalculateAllRewards(ctx)
	}
	logger.Debugf("Unknown request %s", request)
	return nil, ErrorInvalidRequest
}
