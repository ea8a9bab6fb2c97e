package domain

import "time"

// Phase is the checkout state machine marker.
type Phase string

// Checkout phases. Failed is reachable from Submitting only: once the order
// exists, a points-phase failure still ends in Done (with the points flag
// down), never in Failed.
const (
	PhaseIdle            Phase = "idle"
	PhaseAddressSelected Phase = "address_selected"
	PhasePricing         Phase = "pricing"
	PhaseReadyToSubmit   Phase = "ready_to_submit"
	PhaseSubmitting      Phase = "submitting"
	PhaseConfirmingPoints Phase = "confirming_points"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// validTransitions enumerates the allowed phase changes. Retrying after an
// order-creation failure is the explicit failed -> submitting edge.
var validTransitions = map[Phase][]Phase{
	PhaseIdle:            {PhaseAddressSelected},
	PhaseAddressSelected: {PhaseAddressSelected, PhasePricing},
	PhasePricing:         {PhaseAddressSelected, PhasePricing, PhaseReadyToSubmit},
	PhaseReadyToSubmit:   {PhaseAddressSelected, PhasePricing, PhaseReadyToSubmit, PhaseSubmitting},
	PhaseSubmitting:      {PhaseConfirmingPoints, PhaseFailed},
	PhaseConfirmingPoints: {PhaseDone},
	PhaseFailed:          {PhaseSubmitting, PhaseAddressSelected, PhasePricing},
}

// CanTransition reports whether moving from one phase to another is allowed.
func CanTransition(from, to Phase) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InFlight reports whether a commit call is outstanding; a second submission
// must be rejected while this holds.
func (p Phase) InFlight() bool {
	return p == PhaseSubmitting || p == PhaseConfirmingPoints
}

// Terminal reports whether the checkout reached its final state.
func (p Phase) Terminal() bool {
	return p == PhaseDone
}

// Address is an immutable snapshot of a delivery address. The storefront
// selects one; it never mutates it.
type Address struct {
	ID           string `json:"id"`
	Province     string `json:"province"`
	Canton       string `json:"canton"`
	District     string `json:"district"`
	Detail       string `json:"detail"`
	ContactPhone string `json:"contact_phone,omitempty"`
	IsDefault    bool   `json:"is_default"`
}

// ShippingOption is one quoted delivery method for a given address and
// weight. The option set is recomputed wholesale on every address change.
type ShippingOption struct {
	MethodID   string    `json:"method_id"`
	Name       string    `json:"name"`
	Cost       int64     `json:"cost"` // céntimos
	ETAMinDays int       `json:"eta_min_days"`
	ETAMaxDays int       `json:"eta_max_days"`
	ETADateMin time.Time `json:"eta_date_min"`
	ETADateMax time.Time `json:"eta_date_max"`
}

// CheckoutState is the orchestrator's working set. It is created fresh when
// checkout begins and discarded on completion or abandonment; it is never
// persisted.
type CheckoutState struct {
	Phase           Phase           `json:"phase"`
	Address         *Address        `json:"address,omitempty"`
	Shipping        *ShippingOption `json:"shipping,omitempty"`
	PointsRequested int64           `json:"points_requested"`
	Discount        int64           `json:"discount"`
	FailureMessage  string          `json:"failure_message,omitempty"`
}

// OrderOutcome is the terminal artifact of a checkout whose order creation
// succeeded. Created once, immutable afterward. PointsPhaseSucceeded is
// false when the order exists but the points confirmation failed; the order
// itself remains valid.
type OrderOutcome struct {
	OrderID              string `json:"order_id"`
	Subtotal             int64  `json:"subtotal"`
	ShippingCost         int64  `json:"shipping_cost"`
	DiscountApplied      int64  `json:"discount_applied"`
	Total                int64  `json:"total"`
	PointsEarned         int64  `json:"points_earned"`
	PointsPhaseSucceeded bool   `json:"points_phase_succeeded"`
	Warning              string `json:"warning,omitempty"`
}
