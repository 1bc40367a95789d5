package quality

import "fmt"

// Gate is the sufficiency decision applied to a whole result set. Its
// thresholds are deployment-tunable configuration, never literals at call
// sites. Failing the gate is a normal outcome, not an error.
type Gate struct {
	// MinTopScore is the confidence threshold the top adjusted score must
	// reach. Deployments have run anywhere from 0.25 to 0.65.
	MinTopScore float64
	// MinResults is the minimum usable-evidence count, commonly 1 or 2.
	MinResults int
}

// Decision explains an answerable/not-answerable verdict. TopScore and
// ResultsCount are always populated so the caller can tell the user why.
type Decision struct {
	Answerable   bool
	TopScore     float64
	ResultsCount int
	Reason       string
}

// Decide is a pure function of the three inputs and the configured
// thresholds: same inputs, same verdict.
func (g Gate) Decide(topScore float64, resultsCount int, hasContext bool) Decision {
	d := Decision{TopScore: topScore, ResultsCount: resultsCount}
	switch {
	case !hasContext:
		d.Reason = "contexto vacío"
	case topScore < g.MinTopScore:
		d.Reason = fmt.Sprintf("relevancia máxima %.2f por debajo del umbral %.2f", topScore, g.MinTopScore)
	case resultsCount < g.MinResults:
		d.Reason = fmt.Sprintf("%d resultados, se requieren al menos %d", resultsCount, g.MinResults)
	default:
		d.Answerable = true
	}
	return d
}
