package controller

import (
	"strconv"
	"time"

	"facad/app_error"
	"facad/repository"
	"facad/scoring"
	"facad/service"
	"facad/utils"

	"github.com/gin-contrib/cache"
	"github.com/gin-contrib/cache/persistence"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ScoringTableController struct {
	service *service.ScoringTableService
}

func NewScoringTableController(db *gorm.DB) *ScoringTableController {
	return &ScoringTableController{
		service: service.NewScoringTableService(db),
	}
}

func setupScoringTableController(db *gorm.DB, cacheStore persistence.CacheStore) []RouteInfo {
	e := NewScoringTableController(db)
	routes := []RouteInfo{
		{Method: "GET", Path: "/scoring-tables", HandlerFunc: cache.CachePage(cacheStore, time.Minute, e.getTablesHandler())},
		{Method: "GET", Path: "/scoring-tables/:id", HandlerFunc: cache.CachePage(cacheStore, time.Minute, e.getTableHandler())},
		{Method: "POST", Path: "/scoring-tables", HandlerFunc: e.createTableHandler(), Authenticated: true, RequiredRoles: []repository.Permission{repository.PermissionAdmin}},
		{Method: "DELETE", Path: "/scoring-tables/:id", HandlerFunc: e.deleteTableHandler(), Authenticated: true, RequiredRoles: []repository.Permission{repository.PermissionAdmin}},
	}
	return routes
}

// @id GetScoringTables
// @Description Lists all scoring tables
// @Tags scoring-table
// @Produce json
// @Success 200 {array} ScoringTableResponse
// @Router /scoring-tables [get]
func (e *ScoringTableController) getTablesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tables, err := e.service.GetTables()
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, utils.Map(tables, toScoringTableResponse))
	}
}

// @id GetScoringTable
// @Description Fetches one scoring table as its node hierarchy
// @Tags scoring-table
// @Produce json
// @Param id path int true "Table ID"
// @Success 200 {object} ScoringTableTreeResponse
// @Router /scoring-tables/{id} [get]
func (e *ScoringTableController) getTableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		table, tree, err := e.service.GetTableTree(id)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, &ScoringTableTreeResponse{
			ScoringTableResponse: *toScoringTableResponse(table),
			Nodes:                utils.Map(tree, toScoringNodeResponse),
		})
	}
}

// @id CreateScoringTable
// @Description Creates a scoring table with its node/item hierarchy
// @Tags scoring-table
// @Accept json
// @Produce json
// @Param body body ScoringTableCreate true "Table to create"
// @Success 201 {object} ScoringTableResponse
// @Router /scoring-tables [post]
func (e *ScoringTableController) createTableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tableCreate ScoringTableCreate
		if err := c.ShouldBindJSON(&tableCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		table, err := e.service.CreateTable(tableCreate.toModel())
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(201, toScoringTableResponse(table))
	}
}

// @id DeleteScoringTable
// @Description Soft-deletes a scoring table
// @Tags scoring-table
// @Produce json
// @Param id path int true "Table ID"
// @Success 200
// @Router /scoring-tables/{id} [delete]
func (e *ScoringTableController) deleteTableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if err := e.service.DeleteTable(id); err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, gin.H{})
	}
}

type ScoringItemCreate struct {
	Id           int              `json:"id"`
	Description  string           `json:"description" binding:"required"`
	Unit         string           `json:"unit"`
	Points       decimal.Decimal  `json:"points"`
	HasMaxPoints bool             `json:"has_max_points"`
	MaxPoints    *decimal.Decimal `json:"max_points"`
	FormulaKey   *string          `json:"formula_key"`
}

type ScoringNodeCreate struct {
	Id                int                  `json:"id"`
	Name              string               `json:"name" binding:"required"`
	Code              *string              `json:"code"`
	ParentId          *int                 `json:"parent_id"`
	SortOrder         int                  `json:"sort_order"`
	Active            *bool                `json:"active"`
	HasFormula        bool                 `json:"has_formula"`
	FormulaExpression *string              `json:"formula_expression"`
	Items             []*ScoringItemCreate `json:"items"`
}

type ScoringTableCreate struct {
	Name     string               `json:"name" binding:"required"`
	StartsOn time.Time            `json:"starts_on" binding:"required"`
	EndsOn   *time.Time           `json:"ends_on"`
	Nodes    []*ScoringNodeCreate `json:"nodes"`
}

func (e *ScoringTableCreate) toModel() *repository.ScoringTable {
	return &repository.ScoringTable{
		Name:     e.Name,
		StartsOn: e.StartsOn,
		EndsOn:   e.EndsOn,
		Nodes: utils.Map(e.Nodes, func(node *ScoringNodeCreate) *repository.ScoringNode {
			active := true
			if node.Active != nil {
				active = *node.Active
			}
			return &repository.ScoringNode{
				Id:                node.Id,
				Name:              node.Name,
				Code:              node.Code,
				ParentId:          node.ParentId,
				SortOrder:         node.SortOrder,
				Active:            active,
				HasFormula:        node.HasFormula,
				FormulaExpression: node.FormulaExpression,
				Items: utils.Map(node.Items, func(item *ScoringItemCreate) *repository.ScoringItem {
					return &repository.ScoringItem{
						Id:           item.Id,
						Description:  item.Description,
						Unit:         item.Unit,
						Points:       item.Points,
						HasMaxPoints: item.HasMaxPoints,
						MaxPoints:    item.MaxPoints,
						FormulaKey:   item.FormulaKey,
					}
				}),
			}
		}),
	}
}

type ScoringTableResponse struct {
	Id       int        `json:"id"`
	Name     string     `json:"name"`
	StartsOn time.Time  `json:"starts_on"`
	EndsOn   *time.Time `json:"ends_on"`
}

type ScoringTableTreeResponse struct {
	ScoringTableResponse
	Nodes []*ScoringNodeResponse `json:"nodes"`
}

type ScoringItemResponse struct {
	Id           int              `json:"id"`
	Description  string           `json:"description"`
	Unit         string           `json:"unit"`
	Points       decimal.Decimal  `json:"points"`
	HasMaxPoints bool             `json:"has_max_points"`
	MaxPoints    *decimal.Decimal `json:"max_points"`
	FormulaKey   *string          `json:"formula_key"`
}

type ScoringNodeResponse struct {
	Id                int                    `json:"id"`
	Name              string                 `json:"name"`
	Code              *string                `json:"code"`
	SortOrder         int                    `json:"sort_order"`
	Active            bool                   `json:"active"`
	HasFormula        bool                   `json:"has_formula"`
	FormulaExpression *string                `json:"formula_expression"`
	Items             []*ScoringItemResponse `json:"items"`
	Children          []*ScoringNodeResponse `json:"children"`
}

func toScoringTableResponse(table *repository.ScoringTable) *ScoringTableResponse {
	return &ScoringTableResponse{
		Id:       table.Id,
		Name:     table.Name,
		StartsOn: table.StartsOn,
		EndsOn:   table.EndsOn,
	}
}

func toScoringNodeResponse(node *scoring.TreeNode) *ScoringNodeResponse {
	return &ScoringNodeResponse{
		Id:                node.Id,
		Name:              node.Name,
		Code:              node.Code,
		SortOrder:         node.SortOrder,
		Active:            node.Active,
		HasFormula:        node.HasFormula,
		FormulaExpression: node.FormulaExpression,
		Items: utils.Map(node.Items, func(item *repository.ScoringItem) *ScoringItemResponse {
			return &ScoringItemResponse{
				Id:           item.Id,
				Description:  item.Description,
				Unit:         item.Unit,
				Points:       item.Points,
				HasMaxPoints: item.HasMaxPoints,
				MaxPoints:    item.MaxPoints,
				FormulaKey:   item.FormulaKey,
			}
		}),
		Children: utils.Map(node.Children, toScoringNodeResponse),
	}
}
