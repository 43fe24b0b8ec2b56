package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// usdToKESRate converts dollar-denominated prices the model occasionally
// emits despite being asked for shillings.
var usdToKESRate = decimal.NewFromInt(130)

// ParsePrice extracts a whole-shilling amount from a free-form price string
// such as "Ksh 1,450", "KES 2500", "1200/-" or "$19.99". Conversion to
// shillings happens only when the string carries an explicit dollar marker;
// unmarked numbers are taken as shillings as-is. Returns false when no
// numeric amount can be found.
func ParsePrice(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	isUSD := strings.Contains(s, "$") || containsWordUSD(s)

	digits := extractAmount(s)
	if digits == "" {
		return 0, false
	}

	amount, err := decimal.NewFromString(digits)
	if err != nil || amount.IsNegative() {
		return 0, false
	}

	if isUSD {
		amount = amount.Mul(usdToKESRate)
	}

	return int(amount.Round(0).IntPart()), true
}

func containsWordUSD(s string) bool {
	upper := strings.ToUpper(s)
	idx := strings.Index(upper, "USD")
	if idx < 0 {
		return false
	}
	// Reject "USD" appearing inside a longer token.
	if idx > 0 {
		prev := upper[idx-1]
		if prev >= 'A' && prev <= 'Z' {
			return false
		}
	}
	end := idx + 3
	if end < len(upper) {
		next := upper[end]
		if next >= 'A' && next <= 'Z' {
			return false
		}
	}
	return true
}

// extractAmount pulls the first contiguous number out of the string,
// tolerating thousands separators and a decimal point.
func extractAmount(s string) string {
	var sb strings.Builder
	started := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			started = true
			sb.WriteByte(c)
		case started && c == ',':
			// thousands separator, skip
		case started && c == '.':
			sb.WriteByte(c)
		case started:
			return sb.String()
		}
	}
	return sb.String()
}

// FormatKES renders a whole-shilling amount as "Ksh 65,000".
func FormatKES(amount int) string {
	if amount < 0 {
		amount = 0
	}
	digits := decimal.NewFromInt(int64(amount)).String()

	var sb strings.Builder
	sb.WriteString("Ksh ")
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
