package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

const (
	systemPrompt = "You are a logistics analyst helping plan depot replenishment from a central warehouse. " +
		"Answer briefly and only from the data summary provided."

	sampleRows = 5
)

// Answer is the reply to one natural-language question about a session.
type Answer struct {
	Response  string `json:"response"`
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// Ask sends the question together with a summary of the session data.
func Ask(ctx context.Context, c Completer, ds *domain.Dataset, result *domain.CalculationResult, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	prompt := BuildContext(ds, result) + "\nUser question: " + query
	text, err := c.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return &Answer{Response: text, Query: query, SessionID: ds.SessionID}, nil
}

// BuildContext renders the plain-text data summary handed to the model.
func BuildContext(ds *domain.Dataset, result *domain.CalculationResult) string {
	var b strings.Builder

	depots := map[string]struct{}{}
	articles := map[string]struct{}{}
	packaging := map[string]struct{}{}
	for _, o := range ds.Orders {
		depots[o.Depot] = struct{}{}
		articles[o.Article] = struct{}{}
		packaging[o.Packaging] = struct{}{}
	}

	b.WriteString("Order data summary:\n")
	fmt.Fprintf(&b, "- Total records: %d\n", len(ds.Orders))
	if dr := ds.DateRange; dr != nil {
		fmt.Fprintf(&b, "- Date range: %s to %s (%d days)\n", dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"), dr.TotalDays)
	}
	fmt.Fprintf(&b, "- Depots: %s\n", strings.Join(sortedKeys(depots), ", "))
	fmt.Fprintf(&b, "- Products: %d unique articles\n", len(articles))
	fmt.Fprintf(&b, "- Packaging types: %s\n", strings.Join(sortedKeys(packaging), ", "))
	fmt.Fprintf(&b, "- Inventory loaded: %t, transit loaded: %t\n", ds.HasInventory, ds.HasTransit)

	b.WriteString("\nKey metrics:\n")
	b.WriteString("- Average daily consumption = ordered quantity / reference period days\n")
	b.WriteString("- Days of coverage = (stock + transit) / average daily consumption\n")
	b.WriteString("- Quantity to send = days * consumption - stock - transit, rounded up to full pallets\n")

	if result == nil {
		b.WriteString("\nNo calculation has been run yet.\n")
		return b.String()
	}

	s := result.Summary
	fmt.Fprintf(&b, "\nLatest calculation (%d days of coverage requested):\n", result.Request.Days)
	fmt.Fprintf(&b, "- Rows: %d across %d depots, %d palettes, %d trucks\n", s.TotalRows, s.TotalDepots, s.TotalPalettes, s.TotalTrucks)
	fmt.Fprintf(&b, "- Priority: %d high, %d medium, %d low, %d ok\n", s.Priority.High, s.Priority.Medium, s.Priority.Low, s.Priority.OK)
	fmt.Fprintf(&b, "- Depots below a full truck: %d\n", s.InefficientDepots)
	if result.HasInventoryData {
		fmt.Fprintf(&b, "- Not covered by central stock: %d rows\n", s.Delivery.NotCovered)
	}

	urgent := make([]domain.CalculationRow, 0, sampleRows)
	for _, r := range result.Rows {
		if r.Priority == domain.PriorityHigh {
			urgent = append(urgent, r)
			if len(urgent) == sampleRows {
				break
			}
		}
	}
	if len(urgent) > 0 {
		b.WriteString("- Sample high priority rows:\n")
		for _, r := range urgent {
			fmt.Fprintf(&b, "  %s %s (%s): %s days of coverage, send %.0f units\n",
				r.Depot, r.Article, r.Packaging, r.DaysOfCoverage, r.QuantityToSend)
		}
	}
	return b.String()
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
