package domain

import "strings"

// Identity is the logged-in user context. A nil *Identity is a guest.
type Identity struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// HasToken reports whether the identity carries a credential at all.
func (i *Identity) HasToken() bool {
	return i != nil && strings.TrimSpace(i.ID) != "" && strings.TrimSpace(i.Token) != ""
}
