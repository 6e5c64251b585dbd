package scoring

import (
	"log"

	"facad/app_error"
	"facad/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Track selects which point column of the ledger an aggregation reads.
type Track string

const (
	// TrackSelf reads the points the requester reported.
	TrackSelf Track = "self"
	// TrackCommittee reads the evaluator override where present and the
	// self-reported value everywhere else.
	TrackCommittee Track = "committee"
)

var aggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "score_aggregation_duration_s",
	Help: "Duration of one tree aggregation pass",
	Buckets: []float64{
		0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1,
	},
}, []string{"track"})

var formulaFallbackCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "score_formula_fallback_total",
	Help: "Formula evaluations that fell back to the plain item sum",
}, []string{"track"})

// TrackValue returns the point value a ledger row contributes on the
// given track. The committee track is a sparse override: rows without an
// evaluator value fall back to the self-reported points.
func TrackValue(score *repository.ProcessScore, track Track) decimal.Decimal {
	if track == TrackCommittee && score.EvaluatorAwardedPoints != nil {
		return *score.EvaluatorAwardedPoints
	}
	return score.AwardedPoints
}

// FormulaFallback records one formula that could not be evaluated and was
// replaced by the plain item sum. Surfaced to callers so a degraded total
// is never silent.
type FormulaFallback struct {
	NodeId     int    `json:"node_id"`
	Expression string `json:"expression"`
	Reason     string `json:"reason"`
}

// Result holds the outcome of one aggregation pass over a process.
type Result struct {
	NodeTotals map[int]decimal.Decimal
	GrandTotal decimal.Decimal
	Fallbacks  []*FormulaFallback
}

// Aggregate computes every node total and the grand total for one track.
// It is a pure function of the forest and the ledger rows: identical
// inputs always produce identical totals.
func Aggregate(roots []*TreeNode, scores []*repository.ProcessScore, track Track) (*Result, error) {
	timer := prometheus.NewTimer(aggregationDuration.WithLabelValues(string(track)))
	defer timer.ObserveDuration()

	scoresByItem := make(map[int]*repository.ProcessScore, len(scores))
	for _, score := range scores {
		scoresByItem[score.ItemId] = score
	}

	result := &Result{
		NodeTotals: make(map[int]decimal.Decimal),
		GrandTotal: decimal.Zero,
		Fallbacks:  make([]*FormulaFallback, 0),
	}
	for _, root := range roots {
		total, err := result.aggregateNode(root, scoresByItem, track, 1)
		if err != nil {
			return nil, err
		}
		result.GrandTotal = result.GrandTotal.Add(total)
	}
	return result, nil
}

func (result *Result) aggregateNode(node *TreeNode, scoresByItem map[int]*repository.ProcessScore, track Track, depth int) (decimal.Decimal, error) {
	if depth > MaxTreeDepth {
		return decimal.Zero, app_error.Structural("scoring tree exceeds maximum depth", map[string]any{
			"node_id":   node.Id,
			"max_depth": MaxTreeDepth,
		})
	}

	selfTotal := result.selfContribution(node, scoresByItem, track)
	total := selfTotal
	for _, child := range node.Children {
		childTotal, err := result.aggregateNode(child, scoresByItem, track, depth+1)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(childTotal)
	}
	result.NodeTotals[node.Id] = total
	return total, nil
}

// selfContribution is the node's own point total, before children. A node
// with a formula uses the formula output as its entire contribution; the
// raw item sum is never added on top of it.
func (result *Result) selfContribution(node *TreeNode, scoresByItem map[int]*repository.ProcessScore, track Track) decimal.Decimal {
	if !node.HasFormula || node.FormulaExpression == nil {
		return itemSum(node, scoresByItem, track)
	}

	vars := make(map[string]float64)
	for _, item := range node.Items {
		if item.FormulaKey == nil {
			continue
		}
		vars[*item.FormulaKey] = 0
		if score, ok := scoresByItem[item.Id]; ok {
			vars[*item.FormulaKey] = TrackValue(score, track).InexactFloat64()
		}
	}

	value, err := EvalFormula(*node.FormulaExpression, vars)
	if err != nil {
		// a malformed formula must never block scoring
		formulaFallbackCounter.WithLabelValues(string(track)).Inc()
		log.Printf("formula fallback on node %d (%q): %v", node.Id, *node.FormulaExpression, err)
		result.Fallbacks = append(result.Fallbacks, &FormulaFallback{
			NodeId:     node.Id,
			Expression: *node.FormulaExpression,
			Reason:     err.Error(),
		})
		return itemSum(node, scoresByItem, track)
	}
	return decimal.NewFromFloat(value).Round(2)
}

func itemSum(node *TreeNode, scoresByItem map[int]*repository.ProcessScore, track Track) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range node.Items {
		if score, ok := scoresByItem[item.Id]; ok {
			sum = sum.Add(TrackValue(score, track))
		}
	}
	return sum
}

// NodeScoreRows converts self and committee aggregation results into the
// cached rows persisted per process.
func NodeScoreRows(processId int, self *Result, committee *Result) []*repository.ProcessNodeScore {
	rows := make([]*repository.ProcessNodeScore, 0, len(self.NodeTotals))
	for nodeId, total := range self.NodeTotals {
		row := &repository.ProcessNodeScore{
			ProcessId:   processId,
			NodeId:      nodeId,
			TotalPoints: total,
		}
		if committee != nil {
			if committeeTotal, ok := committee.NodeTotals[nodeId]; ok {
				value := committeeTotal
				row.EvaluatorTotalPoints = &value
			}
		}
		rows = append(rows, row)
	}
	return rows
}
