package engine

import (
	"regexp"
	"strings"

	"stratlab/types"
)

// symbolPattern matches literal assignments such as symbol = "X",
// instrument: 'NSE_EQ|INE002A01018' or const SYMBOL = "Y".
var symbolPattern = regexp.MustCompile(`(?i)\b(?:symbol|instrument)\s*[=:]\s*["'` + "`" + `]([^"'` + "`" + `\n]+)["'` + "`" + `]`)

// resolveSymbols picks the symbols a strategy trades. Declared symbols win;
// otherwise the code is scanned for symbol/instrument string literals. The
// second return value reports whether the fallback symbol was used.
func resolveSymbols(def types.StrategyDefinition, fallback string) ([]string, bool) {
	if symbols := dedupe(def.Symbols); len(symbols) > 0 {
		return symbols, false
	}
	if symbols := extractSymbolsFromCode(def.Code); len(symbols) > 0 {
		return symbols, false
	}
	return []string{fallback}, true
}

func extractSymbolsFromCode(code string) []string {
	var found []string
	for _, m := range symbolPattern.FindAllStringSubmatch(code, -1) {
		found = append(found, m[1])
	}
	return dedupe(found)
}

// dedupe trims, drops empties and keeps first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
