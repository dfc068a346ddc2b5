package entity

// Profile is the subset of account data the admin inbox needs to decorate a
// conversation. Maintained by an external collaborator; read-only here.
type Profile struct {
	UserID      string `json:"user_id" firestore:"userId"`
	DisplayName string `json:"display_name" firestore:"displayName"`
	Phone       string `json:"phone,omitempty" firestore:"phone,omitempty"`
}
