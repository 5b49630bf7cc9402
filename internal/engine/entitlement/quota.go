package entitlement

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// UnlimitedSentinel is how an unlimited quota is rendered where a plain integer is expected.
const UnlimitedSentinel = -1

// Quota is either Unlimited or Limited(n). The zero value is Limited(0).
type Quota struct {
	unlimited bool
	n         int
}

func Unlimited() Quota { return Quota{unlimited: true} }

// Limited returns a bounded quota; negative n is clamped to 0.
func Limited(n int) Quota {
	if n < 0 {
		n = 0
	}
	return Quota{n: n}
}

// FromLimit converts a catalog limit, where -1 means unlimited.
func FromLimit(limit int) Quota {
	if limit == UnlimitedSentinel {
		return Unlimited()
	}
	return Limited(limit)
}

func (q Quota) IsUnlimited() bool { return q.unlimited }

// Int renders the quota as an integer, -1 for unlimited.
func (q Quota) Int() int {
	if q.unlimited {
		return UnlimitedSentinel
	}
	return q.n
}

// Minus returns what is left after consumed units. Unlimited stays unlimited.
func (q Quota) Minus(consumed int) Quota {
	if q.unlimited {
		return q
	}
	return Limited(q.n - consumed)
}

// Exhausted reports whether no unit is left.
func (q Quota) Exhausted() bool {
	return !q.unlimited && q.n == 0
}

func (q Quota) String() string {
	if q.unlimited {
		return "unlimited"
	}
	return strconv.Itoa(q.n)
}

// MarshalJSON renders a number, or the string "unlimited".
func (q Quota) MarshalJSON() ([]byte, error) {
	if q.unlimited {
		return []byte(`"unlimited"`), nil
	}
	return []byte(strconv.Itoa(q.n)), nil
}

func (q *Quota) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "unlimited" {
			return fmt.Errorf("invalid quota %q", s)
		}
		*q = Unlimited()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid quota: %w", err)
	}
	*q = FromLimit(n)
	return nil
}
