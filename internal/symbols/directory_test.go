package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirectory(t *testing.T) {
	d, err := NewDirectory()
	require.NoError(t, err)
	assert.Greater(t, d.Len(), 40)
}

func TestLookup_ExactTicker(t *testing.T) {
	d, err := NewDirectory()
	require.NoError(t, err)

	e := d.Lookup("is TSLA a buy right now?")
	require.NotNil(t, e)
	assert.Equal(t, "TSLA", e.Symbol)
	assert.Equal(t, "NASDAQ", e.Exchange)
	assert.False(t, e.SecondaryMarket())
}

func TestLookup_CompanyName(t *testing.T) {
	d, err := NewDirectory()
	require.NoError(t, err)

	e := d.Lookup("Is Tesla stock a buy right now?")
	require.NotNil(t, e)
	assert.Equal(t, "TSLA", e.Symbol)
}

func TestLookup_SecondaryMarketSuffix(t *testing.T) {
	d, err := NewDirectory()
	require.NoError(t, err)

	e := d.Lookup("what do RELIANCE.NS fundamentals look like")
	require.NotNil(t, e)
	assert.Equal(t, "RELIANCE.NS", e.Symbol)
	assert.Equal(t, "NS", e.Suffix)
	assert.True(t, e.SecondaryMarket())
}

func TestLookup_SuffixlessSecondaryMention(t *testing.T) {
	d, err := NewDirectory()
	require.NoError(t, err)

	e := d.Lookup("INFY quarterly earnings trend")
	require.NotNil(t, e)
	assert.Equal(t, "INFY.NS", e.Symbol)
	assert.True(t, e.SecondaryMarket())
}

func TestLookup_LongestNameWins(t *testing.T) {
	d, err := NewDirectory()
	require.NoError(t, err)

	e := d.Lookup("thoughts on tata consultancy services margins")
	require.NotNil(t, e)
	assert.Equal(t, "TCS.NS", e.Symbol)
}

func TestLookup_FuzzyTicker(t *testing.T) {
	d, err := NewDirectory()
	require.NoError(t, err)

	e := d.Lookup("NVDIA earnings reaction")
	require.NotNil(t, e)
	assert.Equal(t, "NVDA", e.Symbol)
}

func TestLookup_NoMatch(t *testing.T) {
	d, err := NewDirectory()
	require.NoError(t, err)

	assert.Nil(t, d.Lookup("what's the capital of France?"))
	assert.Nil(t, d.Lookup(""))
	assert.Nil(t, d.Lookup("   "))
}

func TestEditDistanceAtMostOne(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"TSLA", "TSLA", true},
		{"TSLA", "TSLAA", true},
		{"TSLA", "TSA", true},
		{"TSLA", "TSLB", true},
		{"TSLA", "AAPL", false},
		{"TS", "TSLA", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, editDistanceAtMostOne(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
