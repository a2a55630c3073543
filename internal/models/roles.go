package models

// User roles
const (
	RoleAdmin = "admin" // Unlimited credits, admin access
	RoleBeta  = "beta"  // Beta tester - unlimited generations
	RoleUser  = "user"  // Regular user - standard credits
)

// Initial credit amounts per role
const (
	AdminInitialCredits = 999999 // Effectively unlimited
	BetaInitialCredits  = 500
	UserInitialCredits  = 50 // Starting balance for new profiles
)

// CreditsPerCycle is charged once per completed generation cycle.
const CreditsPerCycle = 1

// CreditBalance is a profile's balance as reported by the credit ledger
type CreditBalance struct {
	Credits   int  `json:"credits"`
	Unlimited bool `json:"unlimited"`
}

// CanAfford reports whether the balance covers one generation cycle
func (b CreditBalance) CanAfford() bool {
	return b.Unlimited || b.Credits >= CreditsPerCycle
}

// GetInitialCreditsForRole returns the starting balance for a given role
func GetInitialCreditsForRole(role string) int {
	switch role {
	case RoleAdmin:
		return AdminInitialCredits
	case RoleBeta:
		return BetaInitialCredits
	default:
		return UserInitialCredits
	}
}

// HasUnlimitedCredits checks if a role should bypass credit deductions
func HasUnlimitedCredits(role string) bool {
	return role == RoleAdmin || role == RoleBeta
}
