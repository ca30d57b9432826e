package document

import (
	"sort"
	"strconv"
	"strings"
)

// ClientStats summarizes one client's documents
type ClientStats struct {
	Client    string `json:"client"`
	Documents int    `json:"documents"`
	Types     []Type `json:"types"`
}

// TypeStats describes one document type present in the history
type TypeStats struct {
	Type  Type   `json:"type"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Count int    `json:"count"`
}

// Stats is the dashboard summary of a history
type Stats struct {
	Documents int           `json:"documents"`
	Clients   []ClientStats `json:"clients"`
	Types     []TypeStats   `json:"types"`
	// TotalDue sums the parseable incl.-tax totals; others are left out
	TotalDue float64 `json:"total_due"`
}

// ComputeStats summarizes docs
func ComputeStats(docs []*Document, catalog *Catalog) Stats {
	view := Group(docs, catalog)
	stats := Stats{
		Documents: len(docs),
		Clients:   make([]ClientStats, 0, len(view.Clients)),
	}

	typeCounts := make(map[Type]int)
	for _, client := range view.Clients {
		cs := ClientStats{Client: client.Client, Documents: client.Count()}
		for _, g := range client.Types {
			cs.Types = append(cs.Types, g.Type)
			typeCounts[g.Type] += len(g.Documents)
		}
		stats.Clients = append(stats.Clients, cs)
	}

	stats.Types = make([]TypeStats, 0, len(typeCounts))
	for t, n := range typeCounts {
		stats.Types = append(stats.Types, TypeStats{Type: t, Label: catalog.Label(t), Icon: catalog.Icon(t), Count: n})
	}
	sort.Slice(stats.Types, func(i, j int) bool { return stats.Types[i].Type < stats.Types[j].Type })

	for _, doc := range docs {
		if amount, ok := ParseAmount(doc.Raw.String("totaux", "total_ttc")); ok {
			stats.TotalDue += amount
		}
	}
	return stats
}

// ParseAmount reads a money amount written with either comma or dot
// decimals and optional space or thousands separators, such as
// "1 234,56", "1,234.56" or "1234.56".
func ParseAmount(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		// The separator that comes last is the decimal one
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
