package replenishment

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

type candidate struct {
	article     string
	designation string
	packaging   string
	inDepot     bool
	central     float64
	spare       float64
	upp         float64
}

func (c candidate) coverablePalettes() int {
	if c.spare <= 0 || c.upp <= 0 {
		return 0
	}
	return int(math.Floor(c.spare / c.upp))
}

// needsCompletion reports whether a depot gets suggestions: its truck leaves
// with something on it and is not full. A depot with nothing to ship gets none.
func needsCompletion(s domain.DepotSummary) bool {
	return s.TotalPalettes > 0 && s.PalettesToAdd > 0
}

// SuggestDepotCompletion lists the articles whose extra pallets would fill
// the depot's truck. Efficient depots and depots with nothing to ship get an
// empty list.
func (e *Engine) SuggestDepotCompletion(result *domain.CalculationResult, depot string) (*domain.DepotCompletion, error) {
	if result == nil {
		return nil, domain.NewValidationError("calculation", "no calculation available")
	}
	depot = strings.TrimSpace(depot)

	var summary *domain.DepotSummary
	for _, s := range e.depotSummaries(result.Rows) {
		if s.Depot == depot {
			s := s
			summary = &s
			break
		}
	}
	if summary == nil {
		return nil, domain.NewValidationError("depot", "depot %s has no rows in the calculation", depot)
	}

	completion := &domain.DepotCompletion{
		Depot:           depot,
		CurrentPalettes: summary.TotalPalettes,
		TargetPalettes:  summary.TargetPalettes,
		PalettesToAdd:   summary.PalettesToAdd,
		Efficiency:      summary.DeliveryEfficiency,
		Suggestions:     []domain.Suggestion{},
	}
	if needsCompletion(*summary) {
		completion.Suggestions = e.suggestions(result.Rows, result.CentralStock, depot, summary.PalettesToAdd)
	}
	return completion, nil
}

// suggestions ranks candidates by feasibility, then lowest central stock,
// then article code, and spreads the missing pallets over the feasible ones.
func (e *Engine) suggestions(rows []domain.CalculationRow, central map[string]float64, depot string, gap int) []domain.Suggestion {
	if gap <= 0 || e.cfg.MaxSuggestions <= 0 {
		return nil
	}

	committed := make(map[string]float64)
	type articleInfo struct {
		designation string
		packaging   string
		upp         float64
	}
	info := make(map[string]articleInfo)
	ordered := make(map[string]struct{})
	for _, row := range rows {
		committed[row.Article] += row.QuantityToSend
		if _, ok := info[row.Article]; !ok {
			info[row.Article] = articleInfo{designation: row.Designation, packaging: row.Packaging, upp: row.UnitsPerPallet}
		}
		if row.Depot == depot {
			ordered[row.Article] = struct{}{}
		}
	}

	var candidates []candidate
	for _, row := range rows {
		if row.Depot != depot {
			continue
		}
		stock := central[row.Article]
		candidates = append(candidates, candidate{
			article:     row.Article,
			designation: row.Designation,
			packaging:   row.Packaging,
			inDepot:     true,
			central:     stock,
			spare:       stock - committed[row.Article],
			upp:         row.UnitsPerPallet,
		})
	}
	for article, stock := range central {
		if _, ok := ordered[article]; ok || stock <= 0 {
			continue
		}
		ai := info[article]
		upp := ai.upp
		if upp <= 0 {
			upp = e.cfg.DefaultUnitsPerPallet
		}
		candidates = append(candidates, candidate{
			article:     article,
			designation: ai.designation,
			packaging:   ai.packaging,
			central:     stock,
			spare:       stock - committed[article],
			upp:         upp,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		fa, fb := a.coverablePalettes() > 0, b.coverablePalettes() > 0
		if fa != fb {
			return fa
		}
		if a.central != b.central {
			return a.central < b.central
		}
		if a.article != b.article {
			return a.article < b.article
		}
		return a.packaging < b.packaging
	})

	remaining := gap
	out := make([]domain.Suggestion, 0, e.cfg.MaxSuggestions)
	for _, c := range candidates {
		if remaining <= 0 || len(out) >= e.cfg.MaxSuggestions {
			break
		}

		s := domain.Suggestion{
			Article:        c.article,
			Designation:    c.designation,
			Packaging:      c.packaging,
			InDepotOrder:   c.inDepot,
			CentralStock:   c.central,
			UnitsPerPallet: c.upp,
		}

		if coverable := c.coverablePalettes(); coverable > 0 {
			add := min(remaining, coverable)
			remaining -= add
			s.SuggestedPalettes = add
			s.CanFulfill = true
			s.Feasibility = domain.Feasible
			s.Reason = fmt.Sprintf("central stock covers %d more pallets", coverable)
		} else {
			s.SuggestedPalettes = remaining
			s.Feasibility = domain.InsufficientStock
			s.Reason = fmt.Sprintf("central stock %.0f cannot cover one more pallet of %.0f units", math.Max(0, c.spare), c.upp)
		}
		if c.inDepot {
			s.Reason = "already ordered, " + s.Reason
		}
		s.SuggestedQuantity = mulQty(s.SuggestedPalettes, c.upp)
		s.FeasibilityText = s.Feasibility.Label()
		out = append(out, s)
	}
	return out
}
