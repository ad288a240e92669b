package domain

import (
	"strconv"
	"strings"
)

// LegacyPrefix is the historical string prefix some stored references carry
// in front of a recipe identifier.
const LegacyPrefix = "recipe_"

// IDKind tells how a RecipeID addresses a recipe.
type IDKind int

const (
	// Canonical identifiers are storage keys (recipe.doc_id).
	Canonical IDKind = iota + 1
	// Legacy identifiers are the numeric recipe.legacy_id values that
	// predate storage keys.
	Legacy
)

func (k IDKind) String() string {
	switch k {
	case Canonical:
		return "canonical"
	case Legacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// RecipeID is one interpretation of a caller-supplied recipe identifier.
// Exactly one of Key or Number is meaningful, selected by Kind.
type RecipeID struct {
	Kind   IDKind
	Key    string
	Number int64
}

// CanonicalID returns a RecipeID addressing a storage key.
func CanonicalID(key string) RecipeID {
	return RecipeID{Kind: Canonical, Key: key}
}

// LegacyID returns a RecipeID addressing a legacy numeric id.
func LegacyID(n int64) RecipeID {
	return RecipeID{Kind: Legacy, Number: n}
}

func (id RecipeID) String() string {
	if id.Kind == Legacy {
		return strconv.FormatInt(id.Number, 10)
	}
	return id.Key
}

// ParseRecipeID turns a raw identifier into its candidate interpretations in
// lookup order: the raw value as a canonical key first, then, when the value
// (with an optional LegacyPrefix removed) is an integer, as a legacy id.
// A blank input yields no candidates.
func ParseRecipeID(raw string) []RecipeID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	ids := []RecipeID{CanonicalID(raw)}
	if n, err := strconv.ParseInt(strings.TrimPrefix(raw, LegacyPrefix), 10, 64); err == nil {
		ids = append(ids, LegacyID(n))
	}
	return ids
}

// RecipeRef is a resolved recipe identity.
type RecipeRef struct {
	Key      string `json:"doc_id"`
	LegacyID *int64 `json:"legacy_id,omitempty"`
}

// Aliases lists every string under which stored rows may reference the
// recipe, canonical key first.
func (r RecipeRef) Aliases() []string {
	aliases := []string{r.Key, LegacyPrefix + r.Key}
	if r.LegacyID != nil {
		n := strconv.FormatInt(*r.LegacyID, 10)
		aliases = append(aliases, n, LegacyPrefix+n)
	}

	seen := make(map[string]struct{}, len(aliases))
	out := aliases[:0]
	for _, a := range aliases {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// RawAliases is the fallback alias set for a raw value that no longer
// resolves: the value itself plus its prefixed or unprefixed twin.
func RawAliases(raw string) []string {
	if raw == "" {
		return nil
	}
	if trimmed, ok := strings.CutPrefix(raw, LegacyPrefix); ok {
		return []string{raw, trimmed}
	}
	return []string{raw, LegacyPrefix + raw}
}
