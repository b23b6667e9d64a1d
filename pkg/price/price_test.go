package price_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwatch/cardwatch/pkg/price"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

func TestParse_US(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"$1,234.56", "1234.56"},
		{"129.99", "129.99"},
		{"  $ 49.00 ", "49.00"},
		{"USD 9.99", "9.99"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := price.Parse(tt.raw, domain.FormatUS)
			require.NoError(t, err)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s want %s", got, want)
		})
	}
}

func TestParse_European(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"1.234,56 €", "1234.56"},
		{"49,00 EUR", "49.00"},
		{"9,99", "9.99"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := price.Parse(tt.raw, domain.FormatEuropean)
			require.NoError(t, err)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s want %s", got, want)
		})
	}
}

func TestParse_NoDigits(t *testing.T) {
	t.Parallel()

	_, err := price.Parse("out of stock", domain.FormatUS)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no numeric content")
}

func TestParse_NoFloatingPointDrift(t *testing.T) {
	t.Parallel()

	a, err := price.Parse("$19.10", domain.FormatUS)
	require.NoError(t, err)
	b, err := price.Parse("$19.10", domain.FormatUS)
	require.NoError(t, err)

	// decimal equality must hold exactly across repeated parses of the same
	// input, which float64 can silently violate for values like 19.10.
	assert.True(t, a.Equal(b))
	assert.Equal(t, "19.1", a.String())
}
