package scoring

import (
	"testing"

	"facad/app_error"
	"facad/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func item(id int, nodeId int, formulaKey *string) *repository.ScoringItem {
	return &repository.ScoringItem{Id: id, NodeId: nodeId, FormulaKey: formulaKey}
}

func selfScore(itemId int, points string) *repository.ProcessScore {
	return &repository.ProcessScore{ItemId: itemId, AwardedPoints: decimal.RequireFromString(points)}
}

func TestAggregateRollsUpChildTotals(t *testing.T) {
	root := node(1, nil, 0)
	child := node(2, ptr(1), 0)
	root.Items = []*repository.ScoringItem{item(10, 1, nil)}
	child.Items = []*repository.ScoringItem{item(11, 2, nil), item(12, 2, nil)}
	roots := BuildTree([]*repository.ScoringNode{root, child})

	scores := []*repository.ProcessScore{
		selfScore(10, "2.50"),
		selfScore(11, "4.00"),
		selfScore(12, "1.25"),
	}

	result, err := Aggregate(roots, scores, TrackSelf)
	assert.Nil(t, err)
	assert.Equal(t, "5.25", result.NodeTotals[2].StringFixed(2))
	assert.Equal(t, "7.75", result.NodeTotals[1].StringFixed(2))
	assert.Equal(t, "7.75", result.GrandTotal.StringFixed(2))
	assert.Empty(t, result.Fallbacks)
}

func TestAggregateItemsWithoutScoresContributeNothing(t *testing.T) {
	root := node(1, nil, 0)
	root.Items = []*repository.ScoringItem{item(10, 1, nil), item(11, 1, nil)}
	roots := BuildTree([]*repository.ScoringNode{root})

	result, err := Aggregate(roots, []*repository.ProcessScore{selfScore(10, "3.00")}, TrackSelf)
	assert.Nil(t, err)
	assert.Equal(t, "3.00", result.GrandTotal.StringFixed(2))
}

func TestAggregateFormulaReplacesItemSum(t *testing.T) {
	root := node(1, nil, 0)
	root.HasFormula = true
	root.FormulaExpression = ptr("A")
	root.Items = []*repository.ScoringItem{
		item(10, 1, ptr("A")),
		item(11, 1, ptr("B")),
	}
	roots := BuildTree([]*repository.ScoringNode{root})

	scores := []*repository.ProcessScore{
		selfScore(10, "5.00"),
		selfScore(11, "5.00"),
	}

	// the formula output is the node's whole contribution, the raw item
	// sum of 10.00 is not added on top
	result, err := Aggregate(roots, scores, TrackSelf)
	assert.Nil(t, err)
	assert.Equal(t, "5.00", result.NodeTotals[1].StringFixed(2))
	assert.Equal(t, "5.00", result.GrandTotal.StringFixed(2))
}

func TestAggregateFormulaFallsBackToItemSum(t *testing.T) {
	root := node(1, nil, 0)
	root.HasFormula = true
	root.FormulaExpression = ptr("A / B")
	root.Items = []*repository.ScoringItem{
		item(10, 1, ptr("A")),
		item(11, 1, ptr("B")),
	}
	roots := BuildTree([]*repository.ScoringNode{root})

	// B is 0 so the division is non-finite
	scores := []*repository.ProcessScore{
		selfScore(10, "6.00"),
		selfScore(11, "0.00"),
	}

	result, err := Aggregate(roots, scores, TrackSelf)
	assert.Nil(t, err)
	assert.Equal(t, "6.00", result.GrandTotal.StringFixed(2))
	assert.Len(t, result.Fallbacks, 1)
	assert.Equal(t, 1, result.Fallbacks[0].NodeId)
	assert.Equal(t, "A / B", result.Fallbacks[0].Expression)
	assert.NotEmpty(t, result.Fallbacks[0].Reason)
}

func TestAggregateCommitteeTrackFallsBackPerRow(t *testing.T) {
	root := node(1, nil, 0)
	root.Items = []*repository.ScoringItem{item(10, 1, nil), item(11, 1, nil)}
	roots := BuildTree([]*repository.ScoringNode{root})

	overridden := selfScore(10, "4.00")
	overridden.EvaluatorAwardedPoints = ptr(decimal.RequireFromString("2.00"))
	scores := []*repository.ProcessScore{
		overridden,
		selfScore(11, "3.00"),
	}

	self, err := Aggregate(roots, scores, TrackSelf)
	assert.Nil(t, err)
	assert.Equal(t, "7.00", self.GrandTotal.StringFixed(2))

	committee, err := Aggregate(roots, scores, TrackCommittee)
	assert.Nil(t, err)
	assert.Equal(t, "5.00", committee.GrandTotal.StringFixed(2))
}

func TestAggregateIsDeterministic(t *testing.T) {
	root := node(1, nil, 0)
	child := node(2, ptr(1), 0)
	root.Items = []*repository.ScoringItem{item(10, 1, nil)}
	child.Items = []*repository.ScoringItem{item(11, 2, nil)}
	roots := BuildTree([]*repository.ScoringNode{root, child})
	scores := []*repository.ProcessScore{selfScore(10, "1.00"), selfScore(11, "2.00")}

	first, err := Aggregate(roots, scores, TrackSelf)
	assert.Nil(t, err)
	second, err := Aggregate(roots, scores, TrackSelf)
	assert.Nil(t, err)
	assert.Equal(t, first.GrandTotal.StringFixed(2), second.GrandTotal.StringFixed(2))
	assert.Equal(t, first.NodeTotals, second.NodeTotals)
}

func TestAggregateRejectsExcessiveDepth(t *testing.T) {
	nodes := make([]*repository.ScoringNode, 0, MaxTreeDepth+1)
	nodes = append(nodes, node(1, nil, 0))
	for i := 2; i <= MaxTreeDepth+1; i++ {
		nodes = append(nodes, node(i, ptr(i-1), 0))
	}
	roots := BuildTree(nodes)

	_, err := Aggregate(roots, nil, TrackSelf)
	assert.NotNil(t, err)
	assert.True(t, app_error.IsKind(err, app_error.KindStructural))
}

func TestNodeScoreRowsCarryBothTracks(t *testing.T) {
	self := &Result{NodeTotals: map[int]decimal.Decimal{
		1: decimal.RequireFromString("7.00"),
		2: decimal.RequireFromString("5.00"),
	}}
	committee := &Result{NodeTotals: map[int]decimal.Decimal{
		1: decimal.RequireFromString("6.00"),
		2: decimal.RequireFromString("5.00"),
	}}

	rows := NodeScoreRows(42, self, committee)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, 42, row.ProcessId)
		assert.NotNil(t, row.EvaluatorTotalPoints)
	}
}
