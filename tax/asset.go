package tax

import "strings"

// defaultAliases remaps exchange-specific symbols to their canonical form
// after the X/Z prefixes used by Kraken's classic assets are resolved.
var defaultAliases = map[string]string{
	"XXBT": "BTC",
	"XBT":  "BTC",
	"XETH": "ETH",
	"ETH2": "ETH",
	"XXRP": "XRP",
	"XLTC": "LTC",
	"XXLM": "XLM",
	"XXMR": "XMR",
	"XZEC": "ZEC",
	"XETC": "ETC",
	"XREP": "REP",
	"XMLN": "MLN",
	"XXDG": "DOGE",
	"XDG":  "DOGE",
	"ZEUR": "EUR",
	"ZUSD": "USD",
	"ZGBP": "GBP",
	"ZCAD": "CAD",
	"ZAUD": "AUD",
	"ZJPY": "JPY",
	"ZCHF": "CHF",
}

// defaultFiat is the fiat exclusion list: assets that never participate in
// cost-basis tracking and instead carry the cost side of trades.
var defaultFiat = []string{
	"EUR", "USD", "GBP", "CHF", "CAD", "AUD", "JPY",
	"SEK", "NOK", "DKK", "PLN", "CZK",
}

// quote currencies recognized when splitting a concatenated pair symbol,
// longest form first so "ZEUR" wins over "EUR".
var pairQuotes = []string{
	"ZEUR", "ZUSD", "ZGBP", "ZCAD", "ZAUD", "ZJPY", "ZCHF",
	"USDT", "USDC", "XXBT", "XETH",
	"EUR", "USD", "GBP", "CHF", "CAD", "AUD", "JPY", "DAI", "XBT", "ETH",
}

// Normalizer resolves raw exchange asset symbols to canonical reporting
// symbols and answers whether an asset is tracked at all. A single value is
// shared read-only by a run; it holds no mutable state.
type Normalizer struct {
	aliases map[string]string
	fiat    map[string]bool
}

// NewNormalizer builds a Normalizer from a configured alias map and fiat
// list. Both supplement the built-in defaults; config entries win on
// conflict.
func NewNormalizer(aliases map[string]string, fiat []string) *Normalizer {
	n := &Normalizer{
		aliases: make(map[string]string, len(defaultAliases)+len(aliases)),
		fiat:    make(map[string]bool, len(defaultFiat)+len(fiat)),
	}
	for k, v := range defaultAliases {
		n.aliases[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	for k, v := range aliases {
		n.aliases[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	for _, f := range defaultFiat {
		n.fiat[strings.ToUpper(f)] = true
	}
	for _, f := range fiat {
		n.fiat[strings.ToUpper(strings.TrimSpace(f))] = true
	}
	return n
}

// DefaultNormalizer returns a Normalizer with only the built-in tables.
func DefaultNormalizer() *Normalizer {
	return NewNormalizer(nil, nil)
}

// Normalize canonicalizes a raw asset symbol: uppercases, strips staking
// and earn suffixes ("DOT.S", "XBT.M", "ETH2.S") and resolves known
// aliases.
func (n *Normalizer) Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return s
	}
	if i := strings.IndexByte(s, '.'); i > 0 {
		s = s[:i]
	}
	if canonical, ok := n.aliases[s]; ok {
		return canonical
	}
	return s
}

// IsFiat reports whether the (raw or normalized) symbol is on the fiat
// exclusion list.
func (n *Normalizer) IsFiat(asset string) bool {
	return n.fiat[n.Normalize(asset)]
}

// IsReportable reports whether the asset participates in cost-basis
// tracking. Fiat currencies do not; they are the reporting side of trades.
func (n *Normalizer) IsReportable(asset string) bool {
	a := n.Normalize(asset)
	return a != "" && !n.fiat[a]
}

// SplitPair splits a concatenated pair symbol like "XXBTZEUR" or "XBTEUR"
// into normalized base and quote. When no known quote suffix matches, the
// whole pair normalizes as the base and quote is empty.
func (n *Normalizer) SplitPair(pair string) (base, quote string) {
	p := strings.ToUpper(strings.TrimSpace(pair))
	if i := strings.IndexByte(p, '/'); i > 0 {
		return n.Normalize(p[:i]), n.Normalize(p[i+1:])
	}
	for _, q := range pairQuotes {
		if len(p) > len(q) && strings.HasSuffix(p, q) {
			return n.Normalize(p[:len(p)-len(q)]), n.Normalize(q)
		}
	}
	return n.Normalize(p), ""
}
