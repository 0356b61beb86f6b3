package classify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// AliasMap resolves company names and their colloquial aliases to stock
// codes, backed by the normalized-aliases JSON file. The file maps a primary
// company name to its alias list; the one all-digit alias in a list is the
// stock code, and the primary name plus every non-digit alias resolve to it.
type AliasMap struct {
	codes map[string]string
}

// LoadAliasMap reads the alias file. Entries without a digit alias carry no
// stock code and are skipped. A missing file yields an empty map, not an
// error: name resolution is best-effort.
func LoadAliasMap(path string, log zerolog.Logger) (*AliasMap, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("alias file missing, name resolution disabled")
		return &AliasMap{codes: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}

	var data map[string][]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse alias file: %w", err)
	}

	codes := make(map[string]string, len(data)*2)
	for mainName, aliases := range data {
		code := ""
		for _, alias := range aliases {
			if isAllDigits(alias) {
				code = alias
				break
			}
		}
		if code == "" {
			continue
		}
		codes[mainName] = code
		for _, alias := range aliases {
			if !isAllDigits(alias) {
				codes[alias] = code
			}
		}
	}
	log.Info().Int("entries", len(codes)).Msg("alias map loaded")
	return &AliasMap{codes: codes}, nil
}

// NewAliasMap builds a map directly from name→code pairs. Used in tests.
func NewAliasMap(codes map[string]string) *AliasMap {
	if codes == nil {
		codes = map[string]string{}
	}
	return &AliasMap{codes: codes}
}

// StockCode resolves a company name or alias to its stock code.
func (a *AliasMap) StockCode(name string) (string, bool) {
	code, ok := a.codes[name]
	return code, ok
}

// Len reports how many names resolve.
func (a *AliasMap) Len() int { return len(a.codes) }

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
