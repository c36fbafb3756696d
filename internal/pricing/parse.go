package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

// thousandsGrouped matches "1.500" and "1.234.567": dots between groups of
// three digits and no decimal part.
var thousandsGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+$`)

// ParseDecimal parses a form value that may use a comma as decimal separator
// ("2,500"). Like the forms it serves, it reads the leading numeric part and
// returns 0 for anything it cannot read.
func ParseDecimal(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.Replace(s, ",", ".", 1)
	return leadingNumber(s)
}

// ParseCurrency parses a money value such as "R$ 1.234,56". When a comma is
// present, dots are thousands separators; otherwise a dot is the decimal
// separator. Unreadable input is 0.
func ParseCurrency(raw string) float64 {
	s := strings.ReplaceAll(raw, "R$", "")
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return leadingNumber(s)
}

// CanonicalKey returns the option key of an installation or freight table row:
// its label when present, otherwise the value formatted as "R$ 12,50".
func CanonicalKey(label string, value float64) string {
	if strings.TrimSpace(label) != "" {
		return label
	}
	return "R$ " + strings.Replace(strconv.FormatFloat(Round(value, 2), 'f', 2, 64), ".", ",", 1)
}

func leadingNumber(s string) float64 {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		frac := end + 1
		for frac < len(s) && s[frac] >= '0' && s[frac] <= '9' {
			frac++
		}
		if frac > end+1 || digits > 0 {
			digits += frac - end - 1
			end = frac
		}
	}
	if digits == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil || !finite(v) {
		return 0
	}
	return v
}
