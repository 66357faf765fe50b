package models

// Role is the closed set of account roles.
type Role string

const (
	RoleUser     Role = "user"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleMerchant, RoleAdmin:
		return true
	}
	return false
}

// ParseRole maps a raw role string, defaulting empty input to RoleUser.
func ParseRole(raw string) (Role, bool) {
	if raw == "" {
		return RoleUser, true
	}
	r := Role(raw)
	return r, r.Valid()
}

// Capability names an action gated at the HTTP boundary.
type Capability string

const (
	CapWallet          Capability = "wallet"
	CapGatewayOrders   Capability = "gateway:orders"
	CapViewAllOrders   Capability = "gateway:orders:all"
	CapMerchantReports Capability = "merchant:reports"
	CapManageUsers     Capability = "users:manage"
)

var capabilities = map[Role][]Capability{
	RoleUser:     {CapWallet, CapGatewayOrders},
	RoleMerchant: {CapWallet, CapGatewayOrders, CapMerchantReports},
	RoleAdmin:    {CapWallet, CapGatewayOrders, CapViewAllOrders, CapMerchantReports, CapManageUsers},
}

// Can reports whether the role holds the capability.
func (r Role) Can(c Capability) bool {
	for _, held := range capabilities[r] {
		if held == c {
			return true
		}
	}
	return false
}
