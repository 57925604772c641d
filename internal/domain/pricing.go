package domain

const basisPointsDenominator = 10000

const (
	DefaultServiceFeeBP = 500
	DefaultTaxBP        = 800
)

// Charges is the fee breakdown for a sale.
type Charges struct {
	TotalCents      int64
	ServiceFeeCents int64
	TaxCents        int64
	FinalCents      int64
}

// ComputeCharges applies the service fee to total and then tax to
// total+fee. Both rates are basis points; amounts round half up.
func ComputeCharges(totalCents int64, serviceFeeBP, taxBP int) Charges {
	fee := applyBasisPoints(totalCents, serviceFeeBP)
	tax := applyBasisPoints(totalCents+fee, taxBP)
	return Charges{
		TotalCents:      totalCents,
		ServiceFeeCents: fee,
		TaxCents:        tax,
		FinalCents:      totalCents + fee + tax,
	}
}

func applyBasisPoints(amount int64, bp int) int64 {
	return (amount*int64(bp) + basisPointsDenominator/2) / basisPointsDenominator
}
