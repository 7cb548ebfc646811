package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/reraeasy/quotation-engine/pkg/enums"
)

// UserID accepts both numeric and string user ids, as issued by the quotation backend.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) String() string { return string(id) }

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   string
	Username string
	Role     enums.UserRole
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	UserID   UserID         `json:"user_id"`
	Username string         `json:"username,omitempty"`
	Role     enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
