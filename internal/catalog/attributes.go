package catalog

// Attribute normalization for frame configurations. The fulfillment
// provider's attribute echo is inconsistently cased (mountColor vs
// mountcolor), so every map crossing an external boundary goes through
// NormalizeAttributes before lookup keys are built.

import "strings"

// keyAliases maps lower-cased attribute keys to the canonical form the
// catalog API documents.
var keyAliases = map[string]string{
	"mountcolor":  "mountColor",
	"mount_color": "mountColor",
	"papertype":   "paperType",
	"paper_type":  "paperType",
	"framecolor":  "color",
	"framecolour": "color",
	"colour":      "color",
}

// valueAliases canonicalizes known value variants.
var valueAliases = map[string]string{
	"dark gray":  "dark-grey",
	"dark grey":  "dark-grey",
	"dark-gray":  "dark-grey",
	"light gray": "light-grey",
	"light grey": "light-grey",
	"light-gray": "light-grey",
	"gray":       "grey",
	"off white":  "off-white",
	"offwhite":   "off-white",
	"snow white": "snow-white",
}

// colorKeys are the keys whose values get slugified (spaces to hyphens) so
// multi-word color names compare stably.
var colorKeys = map[string]bool{
	"color":      true,
	"mountColor": true,
}

// NormalizeAttributes canonicalizes attribute keys and values. It is pure
// and idempotent; unknown keys pass through lower-cased so new catalog
// attributes keep working without a code change.
func NormalizeAttributes(raw map[string]string) map[string]string {
	if raw == nil {
		return map[string]string{}
	}

	normalized := make(map[string]string, len(raw))
	for key, value := range raw {
		normalized[NormalizeAttributeKey(key)] = strings.TrimSpace(value)
	}
	for key, value := range normalized {
		normalized[key] = normalizeAttributeValue(key, value)
	}
	return normalized
}

// NormalizeAttributeKey lower-cases a key and resolves known aliases.
func NormalizeAttributeKey(key string) string {
	lowered := strings.ToLower(strings.TrimSpace(key))
	if canonical, ok := keyAliases[lowered]; ok {
		return canonical
	}
	return lowered
}

func normalizeAttributeValue(key, value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	if canonical, ok := valueAliases[lowered]; ok {
		return canonical
	}
	if colorKeys[key] {
		return strings.ReplaceAll(lowered, " ", "-")
	}
	return lowered
}
