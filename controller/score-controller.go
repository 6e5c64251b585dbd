package controller

import (
	"strconv"
	"time"

	"facad/app_error"
	"facad/repository"
	"facad/service"
	"facad/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ScoreController struct {
	service *service.ScoreService
}

func NewScoreController(db *gorm.DB) *ScoreController {
	return &ScoreController{
		service: service.NewScoreService(db),
	}
}

func setupScoreController(db *gorm.DB) []RouteInfo {
	e := NewScoreController(db)
	routes := []RouteInfo{
		{Method: "GET", Path: "/processes/:id/scores", HandlerFunc: e.getScoresHandler(), Authenticated: true},
		{Method: "GET", Path: "/processes/:id/node-scores", HandlerFunc: e.getNodeScoresHandler(), Authenticated: true},
		{Method: "PUT", Path: "/processes/:id/scores/:item_id", HandlerFunc: e.writeScoreHandler(), Authenticated: true},
		{Method: "PUT", Path: "/processes/:id/scores/:item_id/evidence", HandlerFunc: e.attachEvidenceHandler(), Authenticated: true},
	}
	return routes
}

// @id GetProcessScores
// @Description Lists the ledger rows of one of the caller's processes
// @Tags score
// @Produce json
// @Param id path int true "Process ID"
// @Success 200 {array} ScoreResponse
// @Router /processes/{id}/scores [get]
func (e *ScoreController) getScoresHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		process, ok := e.ownedProcess(c)
		if !ok {
			return
		}
		scores, err := e.service.GetScoresForProcess(process.Id)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, utils.Map(scores, toScoreResponse))
	}
}

// @id GetProcessNodeScores
// @Description Lists the cached per-node totals of one of the caller's processes
// @Tags score
// @Produce json
// @Param id path int true "Process ID"
// @Success 200 {array} NodeScoreResponse
// @Router /processes/{id}/node-scores [get]
func (e *ScoreController) getNodeScoresHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		process, ok := e.ownedProcess(c)
		if !ok {
			return
		}
		nodeScores, err := e.service.GetNodeScoresForProcess(process.Id)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, utils.Map(nodeScores, toNodeScoreResponse))
	}
}

// @id WriteProcessScore
// @Description Writes the caller's score for one item
// @Tags score
// @Accept json
// @Produce json
// @Param id path int true "Process ID"
// @Param item_id path int true "Item ID"
// @Param body body ScoreWriteRequest true "Score to write"
// @Success 200 {object} ScoreResponse
// @Router /processes/{id}/scores/{item_id} [put]
func (e *ScoreController) writeScoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		processId, itemId, ok := pathIds(c)
		if !ok {
			return
		}
		var request ScoreWriteRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		score, err := e.service.WriteScore(getClaims(c).UserId, processId, itemId, &service.ScoreWrite{
			Quantity:      request.Quantity,
			AwardedPoints: request.AwardedPoints,
		})
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, toScoreResponse(score))
	}
}

// @id AttachScoreEvidence
// @Description Attaches one of the caller's evidence files to an item's ledger row
// @Tags score
// @Accept json
// @Produce json
// @Param id path int true "Process ID"
// @Param item_id path int true "Item ID"
// @Param body body EvidenceAttachRequest true "Evidence file reference"
// @Success 200 {object} ScoreResponse
// @Router /processes/{id}/scores/{item_id}/evidence [put]
func (e *ScoreController) attachEvidenceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		processId, itemId, ok := pathIds(c)
		if !ok {
			return
		}
		var request EvidenceAttachRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		fileId, err := uuid.Parse(request.EvidenceFileId)
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		score, err := e.service.AttachEvidence(getClaims(c).UserId, processId, itemId, fileId)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, toScoreResponse(score))
	}
}

func pathIds(c *gin.Context) (int, int, bool) {
	processId, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return 0, 0, false
	}
	itemId, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return 0, 0, false
	}
	return processId, itemId, true
}

// ownedProcess resolves the :id path parameter to a process the caller
// owns, writing the error response itself when it cannot.
func (e *ScoreController) ownedProcess(c *gin.Context) (*repository.CareerProcess, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return nil, false
	}
	process, err := repository.NewProcessRepository(e.service.DB).GetProcessForRequester(id, getClaims(c).UserId)
	if err != nil {
		app_error.Render(c, app_error.NotFound("process"))
		return nil, false
	}
	return process, true
}

type ScoreWriteRequest struct {
	Quantity      *decimal.Decimal `json:"quantity"`
	AwardedPoints *decimal.Decimal `json:"awarded_points"`
}

type EvidenceAttachRequest struct {
	EvidenceFileId string `json:"evidence_file_id" binding:"required"`
}

type ScoreResponse struct {
	ItemId                 int              `json:"item_id"`
	Quantity               decimal.Decimal  `json:"quantity"`
	AwardedPoints          decimal.Decimal  `json:"awarded_points"`
	EvaluatorAwardedPoints *decimal.Decimal `json:"evaluator_awarded_points"`
	EvaluatorComment       *string          `json:"evaluator_comment"`
	EvidenceFileId         *uuid.UUID       `json:"evidence_file_id"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

type NodeScoreResponse struct {
	NodeId               int              `json:"node_id"`
	TotalPoints          decimal.Decimal  `json:"total_points"`
	EvaluatorTotalPoints *decimal.Decimal `json:"evaluator_total_points"`
}

func toScoreResponse(score *repository.ProcessScore) *ScoreResponse {
	return &ScoreResponse{
		ItemId:                 score.ItemId,
		Quantity:               score.Quantity,
		AwardedPoints:          score.AwardedPoints,
		EvaluatorAwardedPoints: score.EvaluatorAwardedPoints,
		EvaluatorComment:       score.EvaluatorComment,
		EvidenceFileId:         score.EvidenceFileId,
		UpdatedAt:              score.UpdatedAt,
	}
}

func toNodeScoreResponse(score *repository.ProcessNodeScore) *NodeScoreResponse {
	return &NodeScoreResponse{
		NodeId:               score.NodeId,
		TotalPoints:          score.TotalPoints,
		EvaluatorTotalPoints: score.EvaluatorTotalPoints,
	}
}
