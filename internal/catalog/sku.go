package catalog

import (
	"errors"
	"strconv"
	"strings"

	"github.com/artframerapp/artframer/internal/models"
)

// ErrSKUNotFound means no catalog variant matched the frame configuration
// well enough to sell. Callers surface this as "product unavailable" and
// must never substitute a different variant silently.
var ErrSKUNotFound = errors.New("no catalog sku matches the frame configuration")

// Candidate scoring weights. A candidate must clear minCandidateScore to be
// sellable; an exact size match alone is enough, a fuzzy size match needs a
// confirming edge or canvas-type preference.
const (
	scoreExactSize       = 50
	scoreEdgeMatch       = 30
	scoreCanvasTypeMatch = 25
	penaltySizeMismatch  = -20
	penaltyEdgeMismatch  = -15
	minCandidateScore    = 30
)

// Resolver derives provider SKUs from frame configurations against a
// loaded catalog.
type Resolver struct {
	catalog *FrameCatalog
}

func NewResolver(cat *FrameCatalog) *Resolver {
	return &Resolver{catalog: cat}
}

// ResolveSKU returns the best-scoring active catalog SKU for the frame
// configuration. Ties go to the earlier catalog entry so resolution stays
// deterministic across calls.
func (r *Resolver) ResolveSKU(frame models.FrameConfig) (string, error) {
	if r.catalog == nil {
		return "", ErrSKUNotFound
	}

	productType := normalizeProductType(frame.ProductType)
	wantSize := normalizeSize(frame.Size)
	wantEdge := NormalizeEdge(frame.Edge)
	wantCanvas := strings.ToLower(strings.TrimSpace(frame.CanvasType))

	bestScore := minCandidateScore - 1
	bestSKU := ""
	for _, entry := range r.catalog.Products {
		if !entry.Active || entry.ProductType != productType {
			continue
		}

		score := scoreCandidate(entry, wantSize, wantEdge, wantCanvas)
		if score > bestScore {
			bestScore = score
			bestSKU = entry.SKU
		}
	}

	if bestSKU == "" {
		return "", ErrSKUNotFound
	}
	return bestSKU, nil
}

func scoreCandidate(entry ProductEntry, wantSize, wantEdge, wantCanvas string) int {
	score := 0

	entrySize := normalizeSize(entry.Size)
	switch {
	case wantSize == "" || entrySize == wantSize:
		if wantSize != "" {
			score += scoreExactSize
		}
	case fuzzySizeMatch(entrySize, wantSize):
		// comparable size, no bonus and no penalty
	default:
		score += penaltySizeMismatch
	}

	if wantEdge != "" && entry.Edge != "" {
		if entry.Edge == wantEdge {
			score += scoreEdgeMatch
		} else {
			score += penaltyEdgeMismatch
		}
	}

	if wantCanvas != "" && entry.CanvasType == wantCanvas {
		score += scoreCanvasTypeMatch
	}

	return score
}

func normalizeProductType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch normalized {
	case "framed", "framedprint", "frame":
		return ProductFramedPrint
	case "canvas-print":
		return ProductCanvas
	default:
		return normalized
	}
}

// NormalizeEdge canonicalizes edge depth variants to the two catalog
// families.
func NormalizeEdge(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "")
	switch normalized {
	case "19mm", "19", "slim", "thin":
		return EdgeSlim
	case "38mm", "38", "standard", "thick", "gallery":
		return EdgeStandard
	default:
		return normalized
	}
}

func normalizeSize(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "×", "x")
	return normalized
}

// fuzzySizeMatch reports whether two sizes are close enough to be plausible
// candidates for each other: swapped orientation, or each dimension within
// two units.
func fuzzySizeMatch(a, b string) bool {
	aw, ah, ok := parseSize(a)
	if !ok {
		return false
	}
	bw, bh, ok := parseSize(b)
	if !ok {
		return false
	}

	if aw == bh && ah == bw {
		return true
	}
	return absDiff(aw, bw) <= 2 && absDiff(ah, bh) <= 2
}

func parseSize(value string) (int, int, bool) {
	parts := strings.SplitN(value, "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
