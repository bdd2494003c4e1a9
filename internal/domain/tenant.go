package domain

// Known subscription plans. Unknown plans fall back to the default limit.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Tenant is the authenticated caller a request acts on behalf of.
type Tenant struct {
	ID   string
	Plan string
}
