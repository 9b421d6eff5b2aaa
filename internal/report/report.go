// Package report renders analysis results into a PDF document.
package report

import (
	"fmt"
	"strings"

	"estate-advisor/internal/listing"
)

// NarrativeCap bounds how much of one narrative is printed per report item.
const NarrativeCap = 400

// InvestThreshold is the grade at or above which the report recommends
// investing.
const InvestThreshold = 70

// Item is one (listing, narrative, grade) triple to render.
type Item struct {
	Record    listing.Record
	Narrative string
	Grade     int
}

// BuildMarkdown produces the report body. A single item renders as one
// analysis report; two or more render as a comparison with numbered
// per-item headings.
func BuildMarkdown(items []Item) string {
	var b strings.Builder
	if len(items) > 1 {
		fmt.Fprintf(&b, "# Сравнительный анализ объектов\n\n")
	} else {
		fmt.Fprintf(&b, "# Аналитический отчет\n\n")
	}

	for i, item := range items {
		if len(items) > 1 {
			fmt.Fprintf(&b, "## Объект %d: %s\n\n", i+1, item.Record.Location)
		} else {
			fmt.Fprintf(&b, "## %s\n\n", item.Record.Location)
		}
		fmt.Fprintf(&b, "- Площадь: %g м²\n", item.Record.Area)
		fmt.Fprintf(&b, "- Цена: %d руб\n", item.Record.Price)
		fmt.Fprintf(&b, "- Тип: %s\n\n", item.Record.PropertyType)
		fmt.Fprintf(&b, "%s\n\n", truncateNarrative(item.Narrative, NarrativeCap))
		fmt.Fprintf(&b, "**Оценка инвестиционной привлекательности: %d/100**\n\n", item.Grade)
		fmt.Fprintf(&b, "Рекомендация: %s\n\n", recommendation(item.Grade))
	}
	return b.String()
}

func recommendation(grade int) string {
	if grade >= InvestThreshold {
		return "Инвестировать"
	}
	return "Рассмотреть другие варианты"
}

func truncateNarrative(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "…"
}
