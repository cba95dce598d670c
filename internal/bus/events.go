package bus

import "fmt"

// Kind says what sort of update an inbound message carries.
type Kind string

const (
	KindMessage     Kind = "message"      // plain text from the user
	KindCallback    Kind = "callback"     // inline button press
	KindPreCheckout Kind = "pre_checkout" // payment pre-checkout query
	KindPayment     Kind = "payment"      // successful payment
)

// InboundMessage is one update received from a chat channel.
type InboundMessage struct {
	Channel  string // source channel name (e.g. "telegram")
	Kind     Kind
	SenderID int64 // owner identifier
	ChatID   int64 // chat the reply should go to
	Username string
	Content  string // text content, if any

	// Callback presses carry the button payload and the message they
	// were attached to, so the reply can edit it in place.
	CallbackID   string
	CallbackData string
	MessageID    int

	// Payment updates.
	PreCheckoutID  string
	PaymentPayload string
}

// StateKey is the routing key for per-chat conversational state.
func (m InboundMessage) StateKey() string {
	return fmt.Sprintf("%s:%d", m.Channel, m.ChatID)
}

// Button is one inline action button.
type Button struct {
	Text string
	Data string // callback payload, e.g. "done:42"
}

// Invoice asks the channel to send a payment invoice.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Amount      int
}

// OutboundMessage is a message (or reply control) to deliver to a channel.
type OutboundMessage struct {
	Channel string
	ChatID  int64
	Content string

	// Reply controls. InlineRows attaches action buttons under the
	// message; Keyboard replaces the persistent reply keyboard;
	// RemoveKeyboard clears it.
	InlineRows     [][]Button
	Keyboard       [][]string
	RemoveKeyboard bool

	// EditMessageID, when set, edits that message instead of sending a
	// new one.
	EditMessageID int

	// CallbackID, when set, acknowledges an inline button press. Alert
	// shows the acknowledgment as a popup.
	CallbackID string
	Alert      bool

	// AckPreCheckoutID approves a pending pre-checkout query.
	AckPreCheckoutID string

	Invoice *Invoice
}
