package auth

import (
	"github.com/angelmondragon/marco-pos/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// CashierTokenPayload captures the data available when minting a terminal JWT.
type CashierTokenPayload struct {
	Email      string
	Role       enums.MemberRole
	TerminalID string
	JTI        string
}

// CashierClaims represents the typed JWT presented by the cashier UI.
type CashierClaims struct {
	Email      string           `json:"email"`
	Role       enums.MemberRole `json:"role"`
	TerminalID string           `json:"terminal_id,omitempty"`
	jwt.RegisteredClaims
}
