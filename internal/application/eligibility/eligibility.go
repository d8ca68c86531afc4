// Package eligibility matches a user profile against a scheme's criteria.
package eligibility

import (
	"slices"

	"github.com/govscheme-portal/internal/domain"
)

// IsEligible reports whether u satisfies every criterion of s. Axes are checked
// in a fixed order and the first failing axis decides. It has no side effects.
func IsEligible(u *domain.User, s *domain.Scheme) bool {
	return ageAllowed(u.Age, s.MinAge, s.MaxAge) &&
		allowed(s.EligibleStates, u.State) &&
		allowed(s.EligibleGenders, u.Gender) &&
		incomeAllowed(u.AnnualIncome, s.MaxIncome) &&
		allowed(s.EligibleCategories, u.Category) &&
		allowed(s.EligibleOccupations, u.Occupation)
}

// Filter returns the schemes u is eligible for, preserving input order.
func Filter(u *domain.User, schemes []domain.Scheme) []domain.Scheme {
	out := make([]domain.Scheme, 0, len(schemes))
	for i := range schemes {
		if IsEligible(u, &schemes[i]) {
			out = append(out, schemes[i])
		}
	}
	return out
}

// An unknown age cannot satisfy a bound.
func ageAllowed(age, lo, hi *int) bool {
	if lo != nil && (age == nil || *age < *lo) {
		return false
	}
	if hi != nil && (age == nil || *age > *hi) {
		return false
	}
	return true
}

// An unknown income never fails the ceiling.
func incomeAllowed(income, ceiling *float64) bool {
	if ceiling == nil || income == nil {
		return true
	}
	return *income <= *ceiling
}

func allowed(list []string, value string) bool {
	if len(list) == 0 || slices.Contains(list, domain.AllowAll) {
		return true
	}
	return value != "" && slices.Contains(list, value)
}
