package integration

import (
	"time"

	"github.com/google/uuid"
)

// OrderCompletedEvent is delivered when an order finishes elsewhere in the
// platform and needs a revenue entry in the ledger. Delivery is
// at-least-once; EventID keys the processed-event ledger.
type OrderCompletedEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerRef string    `json:"customer_ref"`
	Total       float64   `json:"total"`
	CompletedAt time.Time `json:"completed_at"`
}

// PaymentReceivedEvent is delivered when a customer payment settles.
type PaymentReceivedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	PaymentID  uuid.UUID `json:"payment_id"`
	Reference  string    `json:"reference"`
	Amount     float64   `json:"amount"`
	ReceivedAt time.Time `json:"received_at"`
}
