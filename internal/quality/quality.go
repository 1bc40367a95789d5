// Package quality re-scores raw similarity with lexical heuristics. Cosine
// similarity over short passages is a noisy confidence signal: generic
// boilerplate ranks as high as specific testimony. The rule sets here
// penalize the former, reward the latter, and the gate decides whether the
// surviving evidence is sufficient to answer at all.
package quality

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"corpusqa/internal/domain"
)

// Rule is one content pattern, matched against lowercased passage text.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// RuleSet is a declarative scoring profile: hard-reject patterns, soft boost
// patterns, and the numeric shape of the adjustment. The rule lists are data;
// Evaluate never special-cases individual rules.
type RuleSet struct {
	Name string

	Reject []Rule
	Boost  []Rule

	// RejectPenalty multiplies raw similarity when any reject rule matches.
	RejectPenalty float64
	// BoostStep is added to the multiplier per matching boost rule.
	BoostStep float64
	// ComboThreshold matches or more add ComboBonus once (diminishing
	// returns, not compounding).
	ComboThreshold int
	ComboBonus     float64

	// Length adjustment: content under ShortFloor chars is multiplied by
	// ShortPenalty, content over LongFloor chars by LongBonus.
	ShortFloor   int
	ShortPenalty float64
	LongFloor    int
	LongBonus    float64

	// UsefulThreshold is the adjusted score a result must exceed to count
	// as usable evidence.
	UsefulThreshold float64
}

// Evaluation is the outcome of scoring one result.
type Evaluation struct {
	Score    float64
	IsUseful bool
	Reason   string
}

// Evaluate re-scores a single search result. Reject rules short-circuit:
// a match applies the harsh penalty and skips positive scoring entirely.
func (rs *RuleSet) Evaluate(result domain.SearchResult) Evaluation {
	content := strings.ToLower(result.Content)

	for _, rule := range rs.Reject {
		if rule.Pattern.MatchString(content) {
			return Evaluation{
				Score:    result.Similarity * rs.RejectPenalty,
				IsUseful: false,
				Reason:   "Contenido muy genérico o inútil",
			}
		}
	}

	multiplier := 1.0
	matches := 0
	for _, rule := range rs.Boost {
		if rule.Pattern.MatchString(content) {
			multiplier += rs.BoostStep
			matches++
		}
	}
	if rs.ComboThreshold > 0 && matches >= rs.ComboThreshold {
		multiplier += rs.ComboBonus
	}

	if len(result.Content) < rs.ShortFloor {
		multiplier *= rs.ShortPenalty
	}
	if len(result.Content) > rs.LongFloor {
		multiplier *= rs.LongBonus
	}

	score := result.Similarity * multiplier
	eval := Evaluation{
		Score:    score,
		IsUseful: score > rs.UsefulThreshold,
	}
	if matches >= 2 {
		eval.Reason = fmt.Sprintf("Contenido específico (%d indicadores)", matches)
	}
	return eval
}

// Apply evaluates every result, overwrites Similarity with the adjusted
// score, drops results that are not useful, re-sorts by adjusted score and
// truncates to limit. Input order breaks ties.
func (rs *RuleSet) Apply(results []domain.SearchResult, limit int) []domain.SearchResult {
	kept := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		eval := rs.Evaluate(r)
		r.Similarity = eval.Score
		r.IsUseful = eval.IsUseful
		r.QualityReason = eval.Reason
		if !r.IsUseful {
			continue
		}
		kept = append(kept, r)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// Preset returns the named rule set; unknown names fall back to Lenient.
func Preset(name string) *RuleSet {
	switch name {
	case "strict":
		return Strict()
	default:
		return Lenient()
	}
}

// Strict is the aggressive profile: broader reject patterns, bigger
// per-match bonus, harsher length penalty, higher usefulness bar.
func Strict() *RuleSet {
	return &RuleSet{
		Name: "strict",
		Reject: rules(
			"estadistica-vaga", `^\d+%.*reportes?.*otras? cosas?`,
			"se-sabe-que", `^se sabe que.*%`,
			"generalizacion", `^la mayor[ií]a de.*son`,
			"segun-estudios", `^seg[uú]n estudios`,
			"apelacion-autoridad", `^los expertos dicen`,
			"texto-corto", `^\w{1,20}$`,
			"oracion-simple", `^[^.!?]*[.!?]$`,
		),
		Boost: rules(
			"testimonio", `testimonios?|experiencia|relat[oó]|narr[oó]`,
			"contacto", `contact[oó]|encuentro|avistamiento`,
			"abduccion", `abducci[oó]n|secuestro`,
			"descripcion", `nave|objeto|luz|ser|entidad`,
			"detalle", `lugar|fecha|hora|ubicaci[oó]n`,
			"persona", `nombre propio|persona espec[ií]fica`,
		),
		RejectPenalty:   0.3,
		BoostStep:       0.10,
		ShortFloor:      50,
		ShortPenalty:    0.5,
		LongFloor:       200,
		LongBonus:       1.1,
		UsefulThreshold: 0.25,
	}
}

// Lenient is the default profile: only genuinely useless content is
// rejected, boosts are smaller but the list is wider, and three or more
// matches earn a combo bonus.
func Lenient() *RuleSet {
	return &RuleSet{
		Name: "lenient",
		Reject: rules(
			"estadistica-vaga", `^se sabe que \d+%.*reportes?.*otras? cosas?$`,
			"segun-estudios", `^seg[uú]n estudios generales`,
			"apelacion-autoridad", `^los expertos dicen que$`,
			"texto-corto", `^\w{1,15}$`,
			"monosilabo", `^s[ií]\.?$|^no\.?$|^tal vez\.?$`,
		),
		Boost: rules(
			"testimonio", `testimonios?|experiencia|relat[oó]|narr[oó]|cuent[oa]`,
			"contacto", `contact[oó]|encuentro|avistamiento|aparici[oó]n`,
			"abduccion", `abducci[oó]n|secuestro|llevaron|tomaron`,
			"descripcion", `nave|objeto|luz|ser|entidad|criatura`,
			"percepcion", `vio|observ[oó]|mir[oó]|escuch[oó]`,
			"geografia", `lugar|ubicaci[oó]n|ciudad|pa[ií]s|zona`,
			"tiempo", `a[ñn]o|fecha|d[ií]a|noche|hora`,
			"nombre-propio", `(?i)[a-z][a-z]+\s+[a-z][a-z]+`,
			"clasificacion", `razas?|especies?|tipos?|clases?`,
			"cosmico", `tierra|planeta|sistema|galaxia|universo`,
		),
		RejectPenalty:   0.4,
		BoostStep:       0.05,
		ComboThreshold:  3,
		ComboBonus:      0.15,
		ShortFloor:      30,
		ShortPenalty:    0.7,
		LongFloor:       150,
		LongBonus:       1.05,
		UsefulThreshold: 0.20,
	}
}

// rules builds a Rule list from (name, pattern) pairs.
func rules(pairs ...string) []Rule {
	out := make([]Rule, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Rule{
			Name:    pairs[i],
			Pattern: regexp.MustCompile(pairs[i+1]),
		})
	}
	return out
}
