package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMatchQuantity verifies the numeric-token grammar on leading quantities
func TestMatchQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		token string
		value float64
		rest  string
	}{
		{"100 g flour", "100", 100, "g flour"},
		{"100g flour", "100", 100, "g flour"},
		{"100.5 ml", "100.5", 100.5, "ml"},
		{"2,25 kg", "2,25", 2.25, "kg"},
		{"1/2 cup", "1/2", 0.5, "cup"},
		{"1 / 4 tsp", "1 / 4", 0.25, "tsp"},
		{"1 1/2 cups", "1 1/2", 1.5, "cups"},
		{"12 1/2 oz", "12 1/2", 12.5, "oz"},
		{"100-200 g", "100-200", 150, "g"},
		{"50 – 100", "50 – 100", 75, ""},
		{"1,5—2,5 l", "1,5—2,5", 2, "l"},
		{"  3 eggs", "3", 3, "eggs"},
		{"1.2.3g", "1.2", 1.2, ".3g"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			q, ok := MatchQuantity(tc.input)
			require.True(t, ok)
			assert.True(t, q.Valid)
			assert.Equal(t, tc.token, q.Token)
			assert.InDelta(t, tc.value, q.Value, 1e-9)
			assert.Equal(t, tc.rest, q.Rest)
		})
	}
}

// TestMatchQuantity_NoMatch verifies strings not starting with a number are
// rejected
func TestMatchQuantity_NoMatch(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "flour", "sugar100free", "½ cup", ".5 l", "-2 eggs"} {
		_, ok := MatchQuantity(s)
		assert.False(t, ok, "%q should not match", s)
	}
}

// TestMatchQuantity_ZeroDenominator verifies division by zero is reported as
// invalid rather than infinite
func TestMatchQuantity_ZeroDenominator(t *testing.T) {
	t.Parallel()

	q, ok := MatchQuantity("3/0 cup")
	require.True(t, ok)
	assert.False(t, q.Valid)
	assert.Equal(t, "cup", q.Rest)

	q, ok = MatchQuantity("1 1/0 cup")
	require.True(t, ok)
	assert.False(t, q.Valid)
}
