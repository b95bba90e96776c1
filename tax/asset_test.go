package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	n := DefaultNormalizer()
	cases := map[string]string{
		"XXBT":   "BTC",
		"XBT":    "BTC",
		"xbt":    "BTC",
		"XETH":   "ETH",
		"ZEUR":   "EUR",
		"ZUSD":   "USD",
		"XXDG":   "DOGE",
		"DOT.S":  "DOT",
		"XBT.M":  "BTC",
		"ETH2.S": "ETH",
		"ATOM":   "ATOM",
		"PEPE":   "PEPE",
		" sol ":  "SOL",
	}
	for raw, want := range cases {
		assert.Equal(t, want, n.Normalize(raw), "normalize %q", raw)
	}
}

func TestNormalizerOverrides(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(map[string]string{"WBTC": "BTC"}, []string{"ISK"})
	assert.Equal(t, "BTC", n.Normalize("WBTC"))
	assert.True(t, n.IsFiat("ISK"))
	// Built-in tables still apply.
	assert.Equal(t, "BTC", n.Normalize("XXBT"))
	assert.True(t, n.IsFiat("ZEUR"))
}

func TestIsReportable(t *testing.T) {
	t.Parallel()

	n := DefaultNormalizer()
	assert.True(t, n.IsReportable("XXBT"))
	assert.True(t, n.IsReportable("DOT.S"))
	assert.False(t, n.IsReportable("ZEUR"))
	assert.False(t, n.IsReportable("EUR"))
	assert.False(t, n.IsReportable("usd"))
	assert.False(t, n.IsReportable(""))
}

func TestSplitPair(t *testing.T) {
	t.Parallel()

	n := DefaultNormalizer()
	cases := []struct {
		pair, base, quote string
	}{
		{"XXBTZEUR", "BTC", "EUR"},
		{"XBTEUR", "BTC", "EUR"},
		{"XETHZEUR", "ETH", "EUR"},
		{"ETHEUR", "ETH", "EUR"},
		{"SOLEUR", "SOL", "EUR"},
		{"ETHXBT", "ETH", "BTC"},
		{"DOTUSDT", "DOT", "USDT"},
		{"BTC/EUR", "BTC", "EUR"},
		{"ADAUSD", "ADA", "USD"},
	}
	for _, tc := range cases {
		base, quote := n.SplitPair(tc.pair)
		assert.Equal(t, tc.base, base, "base of %q", tc.pair)
		assert.Equal(t, tc.quote, quote, "quote of %q", tc.pair)
	}

	// No recognizable quote: the whole symbol is the base.
	base, quote := n.SplitPair("MYSTERY")
	assert.Equal(t, "MYSTERY", base)
	assert.Equal(t, "", quote)
}
