package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/shipment-console/pkg/enums"
)

// AccessTokenPayload captures the operator identity when minting a JWT.
type AccessTokenPayload struct {
	UserID string
	// VendorID is set for vendor operators and pins every query to that vendor.
	VendorID string
	Role     enums.OperatorRole
	JTI      string
}

// AccessTokenClaims is the typed JWT presented to the console.
type AccessTokenClaims struct {
	UserID   string             `json:"user_id"`
	VendorID string             `json:"vendor_id,omitempty"`
	Role     enums.OperatorRole `json:"role"`
	jwt.RegisteredClaims
}

// VendorScoped reports whether the operator is limited to a single vendor.
func (c AccessTokenClaims) VendorScoped() bool {
	return c.Role == enums.OperatorRoleVendor
}
