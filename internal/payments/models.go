package payments

import "time"

// Settings gates paid features. Read with defaults when no settings row
// exists: all gating disabled, modest prices.
type Settings struct {
	Enabled bool

	// Independent sub-flags; meaningful only when Enabled.
	PosterEnabled bool
	ViewerEnabled bool

	// Prices in shekels.
	PosterPrice       int
	ViewerPrice       int
	SubscriptionPrice int
}

// DefaultSettings is the documented fallback when no settings record exists.
func DefaultSettings() Settings {
	return Settings{
		Enabled:           false,
		PosterEnabled:     false,
		ViewerEnabled:     false,
		PosterPrice:       20,
		ViewerPrice:       5,
		SubscriptionPrice: 30,
	}
}

type Outcome string

const (
	// OutcomeAllowedFree means no payment is required for this action.
	OutcomeAllowedFree Outcome = "allowed_free"
	// OutcomeAllowedEntitled means an existing entitlement already covers it.
	OutcomeAllowedEntitled Outcome = "allowed_entitled"
	// OutcomeChallenge means the caller must accept a charge to proceed.
	OutcomeChallenge Outcome = "challenge"
	OutcomeDenied    Outcome = "denied"
)

type Decision struct {
	Outcome Outcome
	// Price is set when Outcome is OutcomeChallenge.
	Price int
}

// Role distinguishes which sub-flag applies.
type Role string

const (
	RolePoster Role = "poster"
	RoleViewer Role = "viewer"
)

// Facts are the caller's entitlement state, gathered before deciding.
type Facts struct {
	IsOwner bool
	// HasUnlock is a prior single-job unlock for the item in question.
	HasUnlock bool
	// HasActiveSubscription is a non-expired time-boxed subscription.
	HasActiveSubscription bool
	IsAdmin               bool
}

// SubscriptionWindow is the fixed entitlement period granted on a successful
// poster charge.
const SubscriptionWindow = 30 * 24 * time.Hour

// Transaction is the immutable record written alongside every successful
// charge. Never updated, never deleted.
type Transaction struct {
	ID         string
	Phone      string
	JobID      string
	Role       Role
	Amount     int
	AttemptKey string
	CreatedAt  time.Time
}
