package controller

import (
	"strconv"

	"facad/app_error"
	"facad/repository"
	"facad/service"
	"facad/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EvaluationController struct {
	service      *service.EvaluationService
	scoreService *service.ScoreService
}

func NewEvaluationController(db *gorm.DB) *EvaluationController {
	return &EvaluationController{
		service:      service.NewEvaluationService(db),
		scoreService: service.NewScoreService(db),
	}
}

func setupEvaluationController(db *gorm.DB) []RouteInfo {
	e := NewEvaluationController(db)
	evaluator := []repository.Permission{repository.PermissionEvaluator}
	routes := []RouteInfo{
		{Method: "GET", Path: "/review/processes", HandlerFunc: e.getPendingProcessesHandler(), Authenticated: true, RequiredRoles: evaluator},
		{Method: "GET", Path: "/review/processes/:id", HandlerFunc: e.getProcessHandler(), Authenticated: true, RequiredRoles: evaluator},
		{Method: "GET", Path: "/review/processes/:id/scores", HandlerFunc: e.getScoresHandler(), Authenticated: true, RequiredRoles: evaluator},
		{Method: "PUT", Path: "/review/processes/:id/scores/:item_id", HandlerFunc: e.reviewScoreHandler(), Authenticated: true, RequiredRoles: evaluator},
		{Method: "POST", Path: "/review/processes/:id/finalize", HandlerFunc: e.finalizeHandler(), Authenticated: true, RequiredRoles: evaluator},
	}
	return routes
}

// @id GetProcessesPendingReview
// @Description Lists processes waiting for a committee decision
// @Tags evaluation
// @Produce json
// @Success 200 {array} ProcessResponse
// @Router /review/processes [get]
func (e *EvaluationController) getPendingProcessesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		processes, err := service.NewProcessService(e.service.DB).GetProcessesPendingReview()
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, utils.Map(processes, toProcessResponse))
	}
}

// @id GetProcessForReview
// @Description Fetches any process by id for the committee
// @Tags evaluation
// @Produce json
// @Param id path int true "Process ID"
// @Success 200 {object} ProcessResponse
// @Router /review/processes/{id} [get]
func (e *EvaluationController) getProcessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		process, err := e.service.GetProcessForReview(id)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, toProcessResponse(process))
	}
}

// @id GetScoresForReview
// @Description Lists the ledger rows of a process under review
// @Tags evaluation
// @Produce json
// @Param id path int true "Process ID"
// @Success 200 {array} ScoreResponse
// @Router /review/processes/{id}/scores [get]
func (e *EvaluationController) getScoresHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if _, err := e.service.GetProcessForReview(id); err != nil {
			app_error.Render(c, err)
			return
		}
		scores, err := e.scoreService.GetScoresForProcess(id)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, utils.Map(scores, toScoreResponse))
	}
}

// @id ReviewProcessScore
// @Description Writes the committee override for one item
// @Tags evaluation
// @Accept json
// @Produce json
// @Param id path int true "Process ID"
// @Param item_id path int true "Item ID"
// @Param body body ScoreReviewRequest true "Override to write"
// @Success 200 {object} ScoreResponse
// @Router /review/processes/{id}/scores/{item_id} [put]
func (e *EvaluationController) reviewScoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		processId, itemId, ok := pathIds(c)
		if !ok {
			return
		}
		var request ScoreReviewRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		score, err := e.scoreService.ReviewScore(processId, itemId, &service.ScoreReview{
			AwardedPoints: request.AwardedPoints,
			Comment:       request.Comment,
		})
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, toScoreResponse(score))
	}
}

// @id FinalizeProcess
// @Description Records the committee decision and final points
// @Tags evaluation
// @Accept json
// @Produce json
// @Param id path int true "Process ID"
// @Param body body FinalizationRequest true "Decision"
// @Success 200 {object} FinalizationResponse
// @Router /review/processes/{id}/finalize [post]
func (e *EvaluationController) finalizeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		var request FinalizationRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		result, err := e.service.FinalizeProcess(id, request.Decision, request.Comment)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, &FinalizationResponse{
			Process:     toProcessResponse(result.Process),
			FinalPoints: result.Committee.GrandTotal,
		})
	}
}

type ScoreReviewRequest struct {
	AwardedPoints decimal.Decimal `json:"awarded_points"`
	Comment       *string         `json:"comment"`
}

type FinalizationRequest struct {
	Decision repository.ProcessStatus `json:"decision" binding:"required"`
	Comment  *string                  `json:"comment"`
}

type FinalizationResponse struct {
	Process     *ProcessResponse `json:"process"`
	FinalPoints decimal.Decimal  `json:"final_points"`
}
