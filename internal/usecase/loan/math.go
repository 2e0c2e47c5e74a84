package loan

import (
	"fmt"

	domain "collateral-loan-engine/internal/domain/loan"
	"collateral-loan-engine/pkg/u256"

	"github.com/holiman/uint256"
)

var basisPoints = u256.Of(domain.BasisPoints)

// rateBps converts the 1e18-scaled rate to whole basis points (floor) and rejects
// anything below one basis point.
func rateBps(rate *uint256.Int) (*uint256.Int, error) {
	bps := u256.Div(rate, domain.RateScale)
	if bps.IsZero() {
		return nil, fmt.Errorf("%w: rate %s is below 1 basis point", domain.ErrValidation, u256.String(rate))
	}
	return bps, nil
}

// repaymentDue is principal plus flat interest on the full principal:
// principal + principal*floor(rate/1e18)/10000.
func repaymentDue(t domain.Terms) (*uint256.Int, error) {
	bps, err := rateBps(t.Rate)
	if err != nil {
		return nil, err
	}
	interest, err := u256.MulDiv(t.Principal, bps, basisPoints)
	if err != nil {
		return nil, err
	}
	return u256.Add(t.Principal, interest)
}

// originationFee is floor(principal*bps/10000); bps above 10000 is rejected.
func originationFee(principal *uint256.Int, bps uint64) (*uint256.Int, error) {
	if bps > domain.BasisPoints {
		return nil, fmt.Errorf("%w: origination fee %d bps exceeds %d", domain.ErrValidation, bps, domain.BasisPoints)
	}
	return u256.MulDiv(principal, u256.Of(bps), basisPoints)
}

func validateTerms(t domain.Terms) error {
	if t.Duration == 0 {
		return fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	}
	return nil
}

func validateSchedule(t domain.Terms) error {
	if _, err := rateBps(t.Rate); err != nil {
		return err
	}
	if t.Installments%2 != 0 {
		return fmt.Errorf("%w: installments %d must be even", domain.ErrValidation, t.Installments)
	}
	if t.Installments >= domain.MaxInstallments {
		return fmt.Errorf("%w: installments %d must be below %d", domain.ErrValidation, t.Installments, domain.MaxInstallments)
	}
	return nil
}
