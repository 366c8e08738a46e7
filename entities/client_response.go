package entities

type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
)

type ClientResponse struct {
	Status  ResponseStatus `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    interface{}    `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Errors  []FieldError   `json:"errors,omitempty"`
}

func NewClientResponse(r ClientResponse) ClientResponse {
	if r.Status == "" {
		if r.Error != "" {
			r.Status = StatusError
		} else {
			r.Status = StatusSuccess
		}
	}
	return r
}

type PendingRewardsRequest struct {
	Address string `json:"address" uri:"address" binding:"required,eth_addr"`
}

type ClaimProofRequest struct {
	UserAddress string `json:"userAddress" binding:"required,eth_addr"`
	ChainID     uint64 `json:"chainId"`
}

type VerifyClaimRequest struct {
	ClaimData *ClaimProof `json:"claimData" binding:"required"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
