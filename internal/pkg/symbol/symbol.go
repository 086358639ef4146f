package symbol

import (
	"sort"
	"strings"
)

// Class groups assets that share a leverage ceiling.
type Class string

const (
	ClassCrypto Class = "crypto"
	ClassForex  Class = "forex"
	ClassIndex  Class = "indices"
)

// ParseClass maps free-form config values onto a Class; unknown values fall back to crypto.
func ParseClass(raw string) Class {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "forex", "fx":
		return ClassForex
	case "indices", "index", "equities":
		return ClassIndex
	default:
		return ClassCrypto
	}
}

type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

func (s Symbol) Compact() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

var cryptoQuotes = []string{"USDT", "BUSD", "USDC", "TUSD", "BTC", "ETH", "BNB"}

func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}

	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}

	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Symbol{
			Base:  strings.TrimSpace(parts[0]),
			Quote: strings.TrimSpace(parts[1]),
		}
	}

	for _, quote := range cryptoQuotes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{
				Base:  s[:len(s)-len(quote)],
				Quote: quote,
			}
		}
	}

	return Symbol{}
}

func Normalize(s string) string {
	return Parse(s).Internal()
}

// Table maps source trade-pair identifiers onto canonical internal symbols.
type Table struct {
	canonical map[string]string
	classes   map[string]Class
}

// NewTable builds a Table. Keys and values are upper-cased; classes are keyed by canonical symbol.
func NewTable(mapping map[string]string, classes map[string]string) Table {
	t := Table{
		canonical: make(map[string]string, len(mapping)),
		classes:   make(map[string]Class, len(classes)),
	}
	for src, dst := range mapping {
		src = strings.ToUpper(strings.TrimSpace(src))
		dst = strings.ToUpper(strings.TrimSpace(dst))
		if src == "" || dst == "" {
			continue
		}
		t.canonical[src] = dst
	}
	for sym, cls := range classes {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		t.classes[sym] = ParseClass(cls)
	}
	return t
}

// Canonical resolves a source identifier. The second result is false for unmapped pairs.
func (t Table) Canonical(id string) (string, bool) {
	sym, ok := t.canonical[strings.ToUpper(strings.TrimSpace(id))]
	return sym, ok
}

// Resolve behaves like Canonical but returns the upper-cased source id for unmapped pairs
// when includeUnmapped is set.
func (t Table) Resolve(id string, includeUnmapped bool) (string, bool) {
	if sym, ok := t.Canonical(id); ok {
		return sym, true
	}
	if !includeUnmapped {
		return "", false
	}
	raw := strings.ToUpper(strings.TrimSpace(id))
	return raw, raw != ""
}

// Class returns the configured class for a canonical symbol. Unconfigured symbols quoted in a
// crypto currency are crypto, everything else is treated as forex.
func (t Table) Class(sym string) Class {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	if cls, ok := t.classes[sym]; ok {
		return cls
	}
	if Parse(sym).Quote != "" {
		return ClassCrypto
	}
	return ClassForex
}

// Targets lists the distinct canonical symbols, sorted.
func (t Table) Targets() []string {
	seen := make(map[string]struct{}, len(t.canonical))
	out := make([]string, 0, len(t.canonical))
	for _, sym := range t.canonical {
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len is the number of mapped source identifiers.
func (t Table) Len() int { return len(t.canonical) }

func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := strings.ToUpper(strings.TrimSpace(s))
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}
