package announce

import (
	"fmt"
	"strings"

	"mealbot/internal/catalog"
	"mealbot/pkg/tgui"
)

// maxInstructionRunes keeps a card inside one Telegram message so the photo
// link is never split away from the title.
const maxInstructionRunes = 3000

// FormatMeal renders a recipe card as Telegram HTML. The same layout serves
// the daily announcement (daily=true) and the /recipe command.
func FormatMeal(m *catalog.Meal, daily, repeat bool) string {
	title := m.Name
	if daily {
		title = "Daily recipe: " + title
	}
	if repeat {
		title += " (Repeat)"
	}

	var b strings.Builder
	b.WriteString(tgui.B(title).String())
	b.WriteString("\n")
	if c := strings.TrimSpace(m.Category); c != "" {
		b.WriteString(tgui.I(c).String())
		b.WriteString("\n")
	}

	if ings := m.Ingredients(); len(ings) > 0 {
		b.WriteString("\n")
		b.WriteString(tgui.B("Ingredients:").String())
		b.WriteString("\n")
		for _, ing := range ings {
			line := fmt.Sprintf("- %s (%s)", ing.Name, ing.Measure)
			b.WriteString(tgui.Esc(line).String())
			b.WriteString("\n")
		}
	}

	if instr := strings.TrimSpace(m.Instructions); instr != "" {
		b.WriteString("\n")
		b.WriteString(tgui.B("Instructions:").String())
		b.WriteString("\n")
		b.WriteString(tgui.Esc(tgui.TruncRunes(instr, maxInstructionRunes)).String())
		b.WriteString("\n")
	}

	if thumb := strings.TrimSpace(m.Thumbnail); thumb != "" {
		b.WriteString("\n")
		b.WriteString(tgui.Link("Photo", thumb).String())
	}
	return strings.TrimRight(b.String(), "\n")
}
