package analysis

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"PolicyScan/internal/model"
)

// ErrInvalidPolicy marks input that violates the engine's preconditions.
var ErrInvalidPolicy = eris.New("invalid policy")

// ValidatePolicies rejects records the engine cannot analyze meaningfully:
// empty or duplicate ids, negative premium, negative coverage.
func ValidatePolicies(policies []model.PolicyRecord) error {
	var errs []string
	seen := make(map[string]int, len(policies))

	for i, p := range policies {
		ref := fmt.Sprintf("policy[%d]", i)
		if p.ID == "" {
			errs = append(errs, ref+": id is required")
		} else {
			ref = fmt.Sprintf("policy %q", p.ID)
			if j, dup := seen[p.ID]; dup {
				errs = append(errs, fmt.Sprintf("%s: duplicate id (also at index %d)", ref, j))
			} else {
				seen[p.ID] = i
			}
		}
		if p.Premium.IsNegative() {
			errs = append(errs, ref+": premium must be >= 0")
		}
		if p.Coverage.Valid && p.Coverage.Decimal.IsNegative() {
			errs = append(errs, ref+": coverage must be >= 0")
		}
	}

	if len(errs) > 0 {
		return eris.Wrap(ErrInvalidPolicy, strings.Join(errs, "; "))
	}
	return nil
}
