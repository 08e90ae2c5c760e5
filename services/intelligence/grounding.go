// File: services/intelligence/grounding.go
package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"broadway/models"
)

// grounding is everything the model is allowed to rely on for one turn.
type grounding struct {
	cart      string
	stage     models.Stage
	directive string
	message   string
	facts     []string
}

// render lays the block out with the cart, stage, action and message always present.
// Facts are appended in order while they fit within maxChars. When the fixed sections alone
// exceed maxChars the longest of cart, message and action is cut until they fit.
func (g grounding) render(maxChars int) string {
	cart, directive, message := g.cart, g.directive, g.message
	layout := func() (string, string) {
		return fmt.Sprintf("[CART]\n%s\n\n[CHECKOUT STAGE]\n%s\n\n[ACTION]\n%s\n\n", cart, g.stage, directive),
			fmt.Sprintf("[CUSTOMER MESSAGE]\n%s", message)
	}
	head, tail := layout()
	if maxChars > 0 {
		fields := []*string{&cart, &message, &directive}
		for range fields {
			over := len(head) + len(tail) - maxChars
			if over <= 0 {
				break
			}
			longest := fields[0]
			for _, f := range fields[1:] {
				if len(*f) > len(*longest) {
					longest = f
				}
			}
			*longest = clip(*longest, len(*longest)-over)
			head, tail = layout()
		}
	}

	budget := maxChars - len(head) - len(tail)
	var facts strings.Builder
	const factsHeader = "[MENU FACTS]\n"
	const factsFooter = "\n"
	for _, f := range g.facts {
		need := len(f) + 1
		if facts.Len() == 0 {
			need += len(factsHeader) + len(factsFooter)
		}
		if need > budget {
			break
		}
		if facts.Len() == 0 {
			facts.WriteString(factsHeader)
		}
		facts.WriteString(f)
		facts.WriteByte('\n')
		budget -= need
	}
	if facts.Len() > 0 {
		facts.WriteString(factsFooter)
	}
	return head + facts.String() + tail
}

const clipMarker = "..."

// clip shortens s to at most n bytes on a rune boundary, marking the cut.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= len(clipMarker) {
		return ""
	}
	cut := n - len(clipMarker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + clipMarker
}

func itemFact(it models.MenuItem, currency string) string {
	var price string
	if len(it.Variants) == 0 {
		price = "Price " + models.FormatMoney(currency, it.BasePrice)
	} else {
		sizes := make([]string, 0, len(it.Variants))
		for _, v := range it.Variants {
			sizes = append(sizes, v.Name+" "+models.FormatMoney(currency, v.Price))
		}
		price = "Sizes: " + strings.Join(sizes, ", ")
	}
	desc := ""
	if it.Description != "" {
		desc = " " + it.Description
	}
	section := string(it.Category)
	if it.Section != "" {
		section += ", " + it.Section
	}
	return fmt.Sprintf("- %s (%s).%s %s", it.Name, section, desc, price)
}

func dealFact(d models.Deal, currency string) string {
	return fmt.Sprintf("- Deal %s: %s. Includes %s. %s. Price %s",
		d.Name, d.Description, d.ItemsIncluded, d.Availability, models.FormatMoney(currency, d.Price))
}

func infoFacts(info *models.RestaurantInfo) []string {
	return []string{
		fmt.Sprintf("- %s (%s): %s", info.Name, info.Country, info.Description),
		"- Services: " + strings.Join(info.Services, ", "),
		"- Payment methods: " + strings.Join(info.PaymentMethods, ", "),
	}
}

func categoriesFact(cats []models.MenuCategory) string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return "- Menu sections: " + strings.Join(names, ", ")
}
