package domain

// PointsLimit is the redemption ceiling the loyalty program grants for a
// given pre-discount order total, combined with the user's balance.
type PointsLimit struct {
	Eligible           bool   `json:"eligible"`
	Reason             string `json:"reason,omitempty"` // shown verbatim when ineligible
	MaxDiscount        int64  `json:"max_discount"`     // céntimos
	PointsNeededForMax int64  `json:"points_needed_for_max"`
	AvailableBalance   int64  `json:"available_balance"`
}

// MaxRedeemablePoints returns the hard ceiling on points spendable for this
// order: the lesser of the user's balance and the policy cap. Zero when
// ineligible.
func (l PointsLimit) MaxRedeemablePoints() int64 {
	if !l.Eligible {
		return 0
	}
	return min(l.AvailableBalance, l.PointsNeededForMax)
}

// ClampPoints restricts a requested points amount to
// [0, MaxRedeemablePoints()]. Clamping is idempotent.
func (l PointsLimit) ClampPoints(n int64) int64 {
	if n < 0 {
		return 0
	}
	if ceiling := l.MaxRedeemablePoints(); n > ceiling {
		return ceiling
	}
	return n
}

// DiscountFor converts a (previously clamped) points amount to a discount in
// céntimos: points x maxDiscount / pointsNeededForMax, rounded half-up.
func (l PointsLimit) DiscountFor(points int64) int64 {
	if points <= 0 || l.PointsNeededForMax <= 0 {
		return 0
	}
	return divHalfUp(points*l.MaxDiscount, l.PointsNeededForMax)
}

// ConversionFactor returns the céntimos-per-point rate, 0 when the limit
// defines no cap.
func (l PointsLimit) ConversionFactor() float64 {
	if l.PointsNeededForMax <= 0 {
		return 0
	}
	return float64(l.MaxDiscount) / float64(l.PointsNeededForMax)
}
