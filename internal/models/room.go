package models

// PromptPurpose tells the password prompt why it is being shown.
type PromptPurpose string

const (
	PurposeAccess      PromptPurpose = "access"
	PurposeClaim       PromptPurpose = "claim"
	PurposeUpdateClaim PromptPurpose = "update-claim"
)

// PasswordAnswer is what the user typed. A nil *PasswordAnswer means cancel.
type PasswordAnswer struct {
	Password string
	Remember bool
}

// Proof is a short-lived room authorization token. ExpiresAt is epoch ms.
type Proof struct {
	Token     string `json:"proof"`
	ExpiresAt int64  `json:"expires"`
}

type ProofRequest struct {
	Room string `json:"room"`
}

type ProofResponse struct {
	Success bool   `json:"success"`
	Proof   string `json:"proof"`
	Expires int64  `json:"expires"`
	Error   string `json:"error,omitempty"`
}

// Usable reports whether the mint produced something worth caching.
func (r ProofResponse) Usable() bool {
	return r.Success && r.Proof != "" && r.Expires != 0
}

type RoomPasswordRequest struct {
	Room     string `json:"room"`
	Password string `json:"password,omitempty"`
}

type RoomPasswordsResponse struct {
	Success   bool               `json:"success"`
	Passwords map[string]*string `json:"passwords"`
	Error     string             `json:"error,omitempty"`
}

type ClaimRequest struct {
	ChatName string `json:"chat_name"`
	Password string `json:"password,omitempty"`
}

type ClaimInfo struct {
	ChatName  string `json:"chat_name"`
	ClaimedBy string `json:"claimed_by"`
	CreatedAt any    `json:"created_at,omitempty"`
	ClaimedAt any    `json:"claimed_at,omitempty"`
}

type ClaimedChatsResponse struct {
	Success bool        `json:"success"`
	Claimed []ClaimInfo `json:"claimed"`
	Error   string      `json:"error,omitempty"`
}
