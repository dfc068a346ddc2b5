package entity

// PresenceStatus is a user's last-known connection state. A user with no
// observed write yet is StatusUnknown.
type PresenceStatus string

const (
	StatusUnknown PresenceStatus = ""
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

type Presence struct {
	UserID string         `json:"user_id"`
	Status PresenceStatus `json:"status"`
}

// AdminStatus is the single shared scalar for the whole admin pool. Typing
// implies online.
type AdminStatus string

const (
	AdminOnline  AdminStatus = "online"
	AdminOffline AdminStatus = "offline"
	AdminTyping  AdminStatus = "typing"
)
