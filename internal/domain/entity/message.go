package entity

// Sender identifies which side of a conversation authored a message. The
// admin pool is modelled as a single shared identity.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// Counterpart returns the opposite side of the conversation.
func (s Sender) Counterpart() Sender {
	if s == SenderUser {
		return SenderAdmin
	}
	return SenderUser
}

func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAdmin
}

// Message is one entry in a conversation's append-only log. Immutable after
// append except for Read/ReadAt, which transition false->true exactly once.
type Message struct {
	ID           string `json:"id" firestore:"id"`
	Text         string `json:"text" firestore:"text"`
	Sender       Sender `json:"sender" firestore:"sender"`
	Timestamp    int64  `json:"timestamp" firestore:"timestamp"` // ms since epoch
	SenderUserID string `json:"sender_user_id" firestore:"senderUserId"`
	DisplayName  string `json:"display_name,omitempty" firestore:"displayName,omitempty"`
	Read         bool   `json:"read" firestore:"read"`
	ReadAt       int64  `json:"read_at,omitempty" firestore:"readAt,omitempty"`
}
