package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

// Message carries a payout event from the closure transaction to the broker
type Message struct {
	ID            int64               `json:"id"`
	ClosureID     uuid.UUID           `json:"closure_id"`
	ReferenceType string              `json:"reference_type"`
	ReferenceID   string              `json:"reference_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps ev in a pending message
func NewMessage(ev *closure.PayoutEvent) (*Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	return &Message{
		ClosureID:     ev.ClosureID,
		ReferenceType: ev.ReferenceType,
		ReferenceID:   ev.ReferenceID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Key is the partition key of the announced closure, so events of one
// reference stay ordered on the topic.
func (m *Message) Key() string {
	return m.ReferenceType + ":" + m.ReferenceID
}

// GetPayoutEvent decodes the event stored in the payload
func (m *Message) GetPayoutEvent() (*closure.PayoutEvent, error) {
	var ev closure.PayoutEvent
	if err := json.Unmarshal(m.Payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
