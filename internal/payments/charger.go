package payments

import "context"

// ChargeRequest describes one charge attempt. AttemptKey must be unique per
// attempt (call id + step) so a provider-side retry cannot double-charge.
type ChargeRequest struct {
	AttemptKey  string
	Phone       string
	Amount      int
	Description string
}

// Charger is the external payment-capture black box: pass or fail.
// Implementations must treat AttemptKey as an idempotency key.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) error
}

// StubCharger stands in for the real capture integration.
type StubCharger struct {
	// Fail forces every charge to fail; for tests and staged rollouts.
	Fail bool
}

func (s StubCharger) Charge(ctx context.Context, req ChargeRequest) error {
	if s.Fail {
		return ErrChargeFailed
	}
	return nil
}
