package service

import (
	"testing"
	"time"

	"facad/app_error"
	"facad/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validTable() *repository.ScoringTable {
	return &repository.ScoringTable{
		Name:     "table2",
		StartsOn: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Nodes: []*repository.ScoringNode{
			{
				Id:        1,
				Name:      "Teaching",
				Code:      ptr("I"),
				SortOrder: 1,
				Active:    true,
				Items: []*repository.ScoringItem{
					{Id: 1, Description: "Course hours", Unit: "hour", Points: decimal.NewFromInt(1)},
				},
			},
			{
				Id:        2,
				Name:      "Undergraduate teaching",
				Code:      ptr("I-A"),
				ParentId:  ptr(1),
				SortOrder: 1,
				Active:    true,
			},
		},
	}
}

func TestCreateTablePersistsHierarchy(t *testing.T) {
	defer TearDown()
	tableService := NewScoringTableService(db)

	created, err := tableService.CreateTable(validTable())
	assert.Nil(t, err)

	table, tree, err := tableService.GetTableTree(created.Id)
	assert.Nil(t, err)
	assert.Equal(t, "table2", table.Name)
	assert.Len(t, tree, 1)
	assert.Len(t, tree[0].Children, 1)
}

func TestCreateTableRejectsEmptyValidityWindow(t *testing.T) {
	defer TearDown()
	table := validTable()
	table.EndsOn = ptr(table.StartsOn)

	_, err := NewScoringTableService(db).CreateTable(table)
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestCreateTableRejectsForeignParent(t *testing.T) {
	defer TearDown()
	table := validTable()
	table.Nodes[1].ParentId = ptr(99)

	_, err := NewScoringTableService(db).CreateTable(table)
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestCreateTableRejectsParentCycle(t *testing.T) {
	defer TearDown()
	table := validTable()
	table.Nodes[0].ParentId = ptr(2)

	_, err := NewScoringTableService(db).CreateTable(table)
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestCreateTableRejectsDuplicateCode(t *testing.T) {
	defer TearDown()
	table := validTable()
	table.Nodes[1].Code = ptr("I")

	_, err := NewScoringTableService(db).CreateTable(table)
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestCreateTableRejectsFormulaWithoutExpression(t *testing.T) {
	defer TearDown()
	table := validTable()
	table.Nodes[0].HasFormula = true

	_, err := NewScoringTableService(db).CreateTable(table)
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestCreateTableRejectsBadFormulaKey(t *testing.T) {
	defer TearDown()
	table := validTable()
	table.Nodes[0].Items[0].FormulaKey = ptr("bad key")

	_, err := NewScoringTableService(db).CreateTable(table)
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestCreateTableRejectsCapWithoutMaxPoints(t *testing.T) {
	defer TearDown()
	table := validTable()
	table.Nodes[0].Items[0].HasMaxPoints = true

	_, err := NewScoringTableService(db).CreateTable(table)
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestDeleteTableHidesIt(t *testing.T) {
	defer TearDown()
	tableService := NewScoringTableService(db)
	created, err := tableService.CreateTable(validTable())
	assert.Nil(t, err)

	assert.Nil(t, tableService.DeleteTable(created.Id))

	_, err = tableService.GetTableById(created.Id)
	assert.True(t, app_error.IsKind(err, app_error.KindNotFound))
}
