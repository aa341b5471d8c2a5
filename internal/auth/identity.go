package auth

import "github.com/golang-jwt/jwt/v5"

// Identity is the claim set the rest of the service works with.  It only
// lives for the duration of a request or a session.
type Identity struct {
	W3ID       string `json:"w3_id"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Manager    string `json:"manager,omitempty"`
	Department string `json:"department,omitempty"`
}

// IdentityFromClaims resolves identity fields from verified claims.  W3ID
// emits different claim shapes depending on the flow, so each field tries
// a list of aliases in order.
func IdentityFromClaims(c jwt.MapClaims) Identity {
	return Identity{
		W3ID:       claimString(c, "uid", "preferred_username", "sub"),
		Name:       claimString(c, "name", "displayName"),
		Email:      claimString(c, "email", "emailAddress"),
		Manager:    claimString(c, "manager"),
		Department: claimString(c, "department"),
	}
}

func claimString(c jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := c[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case []interface{}:
			// emailAddress is sometimes a list
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}
