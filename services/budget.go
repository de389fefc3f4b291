package services

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// BudgetSpec is the reconciled trip budget. Both sides are always filled when
// at least one raw input was parseable.
type BudgetSpec struct {
	Total     *float64 `json:"total"`
	PerPerson *float64 `json:"por_pessoa"`
}

var budgetMilRegex = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*mil$`)

// ParseBudgetAmount parses a pt-BR formatted amount: optional "R$" prefix,
// period as thousands separator, comma as decimal separator, and a trailing
// "mil" shorthand meaning ×1000. Numbers are accepted directly. Returns nil
// for empty or unparseable input.
func ParseBudgetAmount(raw any) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		return parseBudgetString(v)
	default:
		return nil
	}
}

func parseBudgetString(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	lower := strings.ToLower(s)
	lower = strings.TrimPrefix(lower, "r$")
	lower = strings.TrimSpace(lower)

	mult := 1.0
	if m := budgetMilRegex.FindStringSubmatch(lower); len(m) > 1 {
		lower = m[1]
		mult = 1000
	}

	// "5.500" is five thousand five hundred; "5,5" is five and a half.
	lower = strings.ReplaceAll(lower, ".", "")
	lower = strings.ReplaceAll(lower, ",", ".")
	lower = strings.ReplaceAll(lower, " ", "")

	v, err := strconv.ParseFloat(lower, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	v *= mult
	return &v
}

// FlexAmount unmarshals a JSON field that may be a number, a formatted
// string ("R$ 5.500", "5,5 mil") or null.
type FlexAmount struct {
	Value *float64
}

func (a *FlexAmount) UnmarshalJSON(data []byte) error {
	// encoding/json hands custom unmarshalers the literal null, and
	// unmarshalling null into a float64 is a no-op that would leave 0.
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		a.Value = nil
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		a.Value = ParseBudgetAmount(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Value = ParseBudgetAmount(s)
		return nil
	}
	a.Value = nil
	return nil
}

func (a FlexAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value)
}

// ReconcileBudget fills the missing side of total/per-person using the party
// size, and corrects the common decimal-entry mistake where one of the two
// values was typed 10× too large. The correction only fires when the ratio
// sits within 2% of exactly 10×.
func ReconcileBudget(total, perPerson *float64, partySize int) BudgetSpec {
	n := float64(maxInt(1, partySize))

	if total != nil && perPerson != nil {
		expected := *perPerson * n
		if expected > 0 && within(*total/(expected*10), 1, 0.02) {
			// total entered with a slipped decimal: 110.000 for 11.000
			t := expected
			return BudgetSpec{Total: &t, PerPerson: perPerson}
		}
		if *total > 0 && within(expected/(*total*10), 1, 0.02) {
			// symmetric case: per-person typed 10× too large
			p := *total / n
			return BudgetSpec{Total: total, PerPerson: &p}
		}
		return BudgetSpec{Total: total, PerPerson: perPerson}
	}

	if total != nil {
		p := *total / n
		return BudgetSpec{Total: total, PerPerson: &p}
	}
	if perPerson != nil {
		t := *perPerson * n
		return BudgetSpec{Total: &t, PerPerson: perPerson}
	}
	return BudgetSpec{}
}

func within(ratio, target, tol float64) bool {
	return math.Abs(ratio-target) <= tol
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
