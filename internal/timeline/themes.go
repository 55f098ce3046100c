package timeline

import (
	"sort"
	"strings"
)

// Theme is one detected topic with a relevance score in [0,1].
type Theme struct {
	Name      string  `json:"name"`
	Relevance float64 `json:"relevance"`
}

// themeKeywords maps theme buckets to their indicator words. Relevance
// is total keyword occurrences divided by bucket size, so repeated
// mentions raise the score and it can exceed 1.0 for dominant topics.
var themeKeywords = map[string][]string{
	"education":    {"learn", "study", "education", "course", "lesson", "tutorial"},
	"technology":   {"software", "computer", "programming", "code", "tech", "digital"},
	"business":     {"business", "company", "market", "sales", "profit", "strategy"},
	"science":      {"research", "experiment", "data", "analysis", "theory", "hypothesis"},
	"presentation": {"slide", "next", "previous", "agenda", "overview", "summary"},
}

// maxThemes caps the number of themes reported.
const maxThemes = 5

// ExtractThemes scores each theme bucket against the combined lowercased
// text and returns the matching themes sorted by relevance (ties by
// name), at most maxThemes.
func ExtractThemes(texts []string) []Theme {
	combined := strings.ToLower(strings.Join(texts, " "))
	if strings.TrimSpace(combined) == "" {
		return nil
	}

	var themes []Theme
	for name, keywords := range themeKeywords {
		matches := 0
		for _, kw := range keywords {
			matches += strings.Count(combined, kw)
		}
		if matches == 0 {
			continue
		}
		themes = append(themes, Theme{
			Name:      name,
			Relevance: float64(matches) / float64(len(keywords)),
		})
	}

	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Relevance != themes[j].Relevance {
			return themes[i].Relevance > themes[j].Relevance
		}
		return themes[i].Name < themes[j].Name
	})
	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}
	return themes
}
