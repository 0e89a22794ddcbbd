package realtime

import (
	"encoding/json"
	"log"
	"time"

	"chatlink/internal/domain"
)

// MessageEvent is the wire shape pushed to live channels when a message is
// created.
type MessageEvent struct {
	Type           string    `json:"type"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Body           string    `json:"body"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// DeliveryFailure records one channel that refused a push.
type DeliveryFailure struct {
	UserID  string
	Channel Channel
	Err     error
}

// DeliveryReport summarizes one fan-out attempt.
type DeliveryReport struct {
	Attempted int
	Delivered int
	Failed    []DeliveryFailure
}

// Dispatcher pushes newly created messages to every live channel of the
// sender and the receiver. Delivery is best-effort: a failed send is
// reported, never retried, and never aborts delivery to remaining channels.
// Detaching failed channels is left to their owning handlers to avoid
// racing the channel lifecycle.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Deliver serializes the message once and attempts a non-blocking send on
// every resolved channel. Both parties receive a copy, so the sender's
// other devices see an instant echo.
func (d *Dispatcher) Deliver(m *domain.Message) DeliveryReport {
	event := MessageEvent{
		Type:           "message",
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Body:           m.Body,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("dispatch: marshal message %s: %v", m.ID, err)
		return DeliveryReport{}
	}

	var report DeliveryReport
	for _, userID := range []string{m.SenderID, m.ReceiverID} {
		for _, ch := range d.registry.ChannelsOf(userID) {
			report.Attempted++
			if err := ch.Send(payload); err != nil {
				report.Failed = append(report.Failed, DeliveryFailure{
					UserID:  userID,
					Channel: ch,
					Err:     err,
				})
				continue
			}
			report.Delivered++
		}
	}
	return report
}
