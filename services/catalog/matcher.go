package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"broadway/models"

	"github.com/shopspring/decimal"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// genericTokens never distinguish one entity from another on their own.
var genericTokens = map[string]bool{
	"pizza":  true,
	"pizzas": true,
	"deal":   true,
	"deals":  true,
}

// fillerTokens are too common in requests to be worth a catalog search.
var fillerTokens = map[string]bool{
	"what": true, "have": true, "show": true, "your": true, "with": true, "about": true,
	"menu": true, "want": true, "like": true, "please": true, "tell": true, "there": true,
	"some": true, "does": true, "which": true, "anything": true, "options": true, "today": true,
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "dozen": 12, "couple": 2, "pair": 2,
}

// Tokenize lowercases s and splits it into alphanumeric runs.
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// fold drops a plural "s" so "wing" and "wings" compare equal.
func fold(t string) string {
	if len(t) > 3 && strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss") {
		return t[:len(t)-1]
	}
	return t
}

func foldedSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[fold(t)] = true
	}
	return set
}

// Entity is anything the customer can name: a menu item, a deal or a cart line.
type Entity struct {
	Ref      models.ItemRef
	Name     string
	Category models.Category
	Price    decimal.Decimal
	Variants []models.Variant
}

// EntitiesFrom flattens items and deals into one match space.
func EntitiesFrom(items []models.MenuItem, deals []models.Deal) []Entity {
	out := make([]Entity, 0, len(items)+len(deals))
	for _, it := range items {
		out = append(out, Entity{
			Ref:      models.ItemRef{Kind: models.RefItem, ID: it.ID},
			Name:     it.Name,
			Category: it.Category,
			Price:    it.BasePrice,
			Variants: it.Variants,
		})
	}
	for _, d := range deals {
		out = append(out, Entity{
			Ref:      models.ItemRef{Kind: models.RefDeal, ID: d.ID},
			Name:     d.Name,
			Category: models.CategoryDeal,
			Price:    d.Price,
		})
	}
	return out
}

// distinctive returns the name tokens that identify an entity.
func distinctive(name string) []string {
	all := Tokenize(name)
	out := make([]string, 0, len(all))
	for _, t := range all {
		if !genericTokens[t] {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}

// Match is the outcome of matching an utterance against a set of entities.
type Match struct {
	// Best holds every entity sharing the top score. More than one means the utterance is ambiguous.
	Best  []Entity
	Score int
	// Partial holds entities that share some but not all distinctive tokens with the utterance.
	Partial []Entity
}

// Found reports a single unambiguous winner.
func (m Match) Found() bool { return len(m.Best) == 1 }

// Ambiguous reports a tie at the top score.
func (m Match) Ambiguous() bool { return len(m.Best) > 1 }

// Suggestions lists candidate names for a clarification, best first.
func (m Match) Suggestions(limit int) []string {
	names := make([]string, 0, limit)
	seen := map[string]bool{}
	for _, group := range [][]Entity{m.Best, m.Partial} {
		for _, e := range group {
			if len(names) == limit {
				return names
			}
			if !seen[e.Name] {
				seen[e.Name] = true
				names = append(names, e.Name)
			}
		}
	}
	return names
}

// MatchEntities scores entities whose distinctive tokens all appear in tokens.
// With no full match, a single best partial whose head noun (its last distinctive token) appears is taken as the match.
func MatchEntities(tokens []string, entities []Entity) Match {
	present := foldedSet(tokens)

	type partial struct {
		e       Entity
		overlap int
	}
	var (
		m        Match
		partials []partial
	)
	for _, e := range entities {
		need := distinctive(e.Name)
		hit := 0
		for _, t := range need {
			if present[fold(t)] {
				hit++
			}
		}
		switch {
		case hit == 0:
		case hit == len(need):
			score := hit
			for _, t := range Tokenize(e.Name) {
				if genericTokens[t] && present[fold(t)] {
					score++
				}
			}
			if score > m.Score {
				m.Score = score
				m.Best = []Entity{e}
			} else if score == m.Score {
				m.Best = append(m.Best, e)
			}
		default:
			partials = append(partials, partial{e: e, overlap: hit})
		}
	}

	sort.SliceStable(partials, func(i, j int) bool { return partials[i].overlap > partials[j].overlap })
	if len(m.Best) == 0 && len(partials) > 0 {
		top := partials[0]
		unique := len(partials) == 1 || partials[1].overlap < top.overlap
		need := distinctive(top.e.Name)
		if unique && present[fold(need[len(need)-1])] {
			m.Best, m.Score = []Entity{top.e}, top.overlap
			partials = partials[1:]
		}
	}
	for _, p := range partials {
		m.Partial = append(m.Partial, p.e)
	}
	return m
}

// MatchVariant finds the variant whose final name token appears in tokens.
func MatchVariant(tokens []string, variants []models.Variant) (models.Variant, bool) {
	present := foldedSet(tokens)
	for _, v := range variants {
		vt := Tokenize(v.Name)
		if len(vt) > 0 && present[fold(vt[len(vt)-1])] {
			return v, true
		}
	}
	return models.Variant{}, false
}

// ParseQuantity reads the quantity left in tokens once the entity and variant words are gone.
// It returns 1 and false when no quantity was given.
func ParseQuantity(tokens []string, exclude ...string) (int, bool, error) {
	skip := map[string]int{}
	for _, phrase := range exclude {
		for _, t := range Tokenize(phrase) {
			skip[t]++
		}
	}
	for _, t := range tokens {
		if skip[t] > 0 {
			skip[t]--
			continue
		}
		n, ok := numberWords[t]
		if !ok {
			v, err := strconv.Atoi(t)
			if err != nil {
				continue
			}
			n = v
		}
		if n < 1 || n > models.MaxLineQuantity {
			return 0, true, &models.ValidationError{Field: "quantity", Reason: "quantity must be between 1 and " + strconv.Itoa(models.MaxLineQuantity)}
		}
		return n, true, nil
	}
	return 1, false, nil
}
