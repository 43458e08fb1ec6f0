package tagging

import "fmt"

// AliasSource provides the persisted alias table as a lookup from normalized
// alias to canonical tag name. Implemented by the tags repository.
type AliasSource interface {
	AliasMap() (map[string]string, error)
}

// Resolver maps tag names that may be aliases to their canonical names.
//
// The alias map is loaded once at construction and never refreshed: build a
// fresh Resolver per request (or after mutating aliases) so a single
// parse-then-filter operation always sees a consistent view. Staleness across
// requests is acceptable; staleness within one is not.
type Resolver struct {
	aliases map[string]string
}

// NewResolver loads the alias table from src. This is the only I/O the tag
// query core performs; a load failure is surfaced so the caller can fall back
// to plain substring search.
func NewResolver(src AliasSource) (*Resolver, error) {
	aliases, err := src.AliasMap()
	if err != nil {
		return nil, fmt.Errorf("load tag aliases: %w", err)
	}
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &Resolver{aliases: aliases}, nil
}

// Resolve returns the canonical tag name for name. The input is normalized
// first; a name with no alias entry is returned normalized but otherwise
// unchanged, so unknown tags pass through as their own canonical form.
func (r *Resolver) Resolve(name string) string {
	normalized := Normalize(name)
	if canonical, ok := r.aliases[normalized]; ok {
		return canonical
	}
	return normalized
}
