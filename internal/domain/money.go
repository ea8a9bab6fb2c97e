package domain

// Currency is the single currency handled by the storefront. Amounts are
// int64 céntimos (the colón's minor unit).
const Currency = "CRC"

// TaxRateBasisPoints is the fixed IVA rate applied to all catalog prices,
// expressed in basis points (13.00%).
const TaxRateBasisPoints int64 = 1300

// divHalfUp divides num by den rounding half up. This is the single rounding
// rule for every derived monetary figure: tax extraction and
// points-to-colones conversion both use it, so the live estimate and the
// final receipt can never disagree by a céntimo. num must be non-negative
// and den must be > 0.
func divHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}
