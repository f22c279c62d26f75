package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
	"github.com/andresuchdata/depot-replenishment/internal/sheet"
)

type sourcingEntry struct {
	Article string
	Tier    domain.SourcingTier
}

type depotArticle struct {
	Depot   string
	Article string
}

func readTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	rows, err := sheet.ReadRows(f, path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return rows, nil
}

// columnIndex finds the first header matching one of the names, ignoring case.
func columnIndex(header []string, names ...string) int {
	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, n := range names {
			if strings.EqualFold(h, n) {
				return i
			}
		}
	}
	return -1
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func readSourcingFile(path string) ([]sourcingEntry, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return parseSourcing(rows)
}

func parseSourcing(rows [][]string) ([]sourcingEntry, error) {
	header := rows[0]
	articleCol := columnIndex(header, "Article", "Code Article")
	tierCol := columnIndex(header, "Sourcing", "Tier", "Origine")
	if articleCol < 0 || tierCol < 0 {
		return nil, fmt.Errorf("sourcing file needs Article and Sourcing columns")
	}

	seen := make(map[string]int)
	var out []sourcingEntry
	for i, record := range rows[1:] {
		article := cell(record, articleCol)
		if article == "" {
			continue
		}
		tier, ok := domain.ParseSourcingTier(cell(record, tierCol))
		if !ok || tier == domain.SourcingUnknown {
			return nil, fmt.Errorf("row %d: invalid sourcing %q for article %s", i+2, cell(record, tierCol), article)
		}
		if at, dup := seen[article]; dup {
			out[at].Tier = tier
			continue
		}
		seen[article] = len(out)
		out = append(out, sourcingEntry{Article: article, Tier: tier})
	}
	return out, nil
}

func readDepotArticleFile(path string) ([]depotArticle, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return parseDepotArticles(rows)
}

func parseDepotArticles(rows [][]string) ([]depotArticle, error) {
	header := rows[0]
	depotCol := columnIndex(header, "Depot", "Dépôt", "Point d'Expédition")
	articleCol := columnIndex(header, "Article", "Code Article")
	if depotCol < 0 || articleCol < 0 {
		return nil, fmt.Errorf("depot article file needs Depot and Article columns")
	}

	seen := make(map[depotArticle]struct{})
	var out []depotArticle
	for _, record := range rows[1:] {
		p := depotArticle{Depot: cell(record, depotCol), Article: cell(record, articleCol)}
		if p.Depot == "" || p.Article == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
