package dto

import (
	"time"

	"github.com/spec-kit/vps-service/internal/domain"
)

// CreateOrderRequest payload.
type CreateOrderRequest struct {
	PlanKey string `json:"plan_key"`
}

// AttachProofRequest payload.
type AttachProofRequest struct {
	ProofRef string `json:"proof_ref"`
}

// OrderResponse is the order view returned to callers.
type OrderResponse struct {
	ID        string             `json:"id"`
	Buyer     string             `json:"buyer"`
	PlanKey   string             `json:"plan_key"`
	Status    domain.OrderStatus `json:"status"`
	ProofRef  string             `json:"proof_ref,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// PlanResponse is one purchasable tier.
type PlanResponse struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
	RAMGB  int    `json:"ram_gb"`
	CPU    int    `json:"cpu"`
	DiskGB int    `json:"disk_gb"`
	Price  string `json:"price"`
	Color  string `json:"color"`
}
