package domain

import "time"

// OrderStatus enumerates the provisioning workflow states. Approved and
// rejected are terminal: the order record is removed when either is reached.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order is a buyer's request for a plan, gated on payment evidence and
// admin approval.
type Order struct {
	ID        string      `json:"id"`
	Buyer     string      `json:"buyer"`
	PlanKey   string      `json:"plan_key"`
	Status    OrderStatus `json:"status"`
	ProofRef  string      `json:"proof_ref,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
