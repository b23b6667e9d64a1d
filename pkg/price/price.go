// Package price parses locale-formatted money strings into exact decimals.
package price

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// keepDigitsAndSeparators strips currency symbols, whitespace, and anything
// else that isn't a digit, comma, dot, or leading minus sign.
var keepDigitsAndSeparators = regexp.MustCompile(`[^0-9,.\-]`)

// Parse converts a raw price string into a decimal.Decimal, interpreting
// thousands/decimal separators according to format. Returns an error if the
// string contains no digits or is ambiguous after stripping non-numeric
// characters (e.g. empty after currency-symbol removal).
//
// us: "," is a thousands separator, "." is the decimal point (e.g. "1,234.56").
// european: "." is a thousands separator, "," is the decimal point (e.g. "1.234,56").
func Parse(raw string, format domain.PriceFormat) (decimal.Decimal, error) {
	cleaned := keepDigitsAndSeparators.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("price: no numeric content in %q", raw)
	}

	normalized := normalize(cleaned, format)

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price: parsing %q (normalized %q): %w", raw, normalized, err)
	}

	return d, nil
}

func normalize(cleaned string, format domain.PriceFormat) string {
	switch format {
	case domain.FormatEuropean:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	default: // domain.FormatUS and unset
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	return cleaned
}
