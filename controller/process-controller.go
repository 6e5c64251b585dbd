package controller

import (
	"strconv"
	"time"

	"facad/app_error"
	"facad/repository"
	"facad/scoring"
	"facad/service"
	"facad/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProcessController struct {
	service         *service.ProcessService
	documentService *service.DocumentService
}

func NewProcessController(db *gorm.DB) *ProcessController {
	return &ProcessController{
		service:         service.NewProcessService(db),
		documentService: service.NewDocumentService(db),
	}
}

func setupProcessController(db *gorm.DB) []RouteInfo {
	e := NewProcessController(db)
	routes := []RouteInfo{
		{Method: "POST", Path: "/processes", HandlerFunc: e.openProcessHandler(), Authenticated: true},
		{Method: "GET", Path: "/processes", HandlerFunc: e.getProcessesHandler(), Authenticated: true},
		{Method: "GET", Path: "/processes/:id", HandlerFunc: e.getProcessHandler(), Authenticated: true},
		{Method: "PATCH", Path: "/processes/:id", HandlerFunc: e.updateProcessHandler(), Authenticated: true},
		{Method: "POST", Path: "/processes/:id/submit", HandlerFunc: e.submitProcessHandler(), Authenticated: true},
		{Method: "DELETE", Path: "/processes/:id", HandlerFunc: e.deleteProcessHandler(), Authenticated: true},
		{Method: "GET", Path: "/processes/:id/document", HandlerFunc: e.getProcessDocumentHandler(), Authenticated: true},
	}
	return routes
}

// @id OpenProcess
// @Description Opens a new career advancement request in draft
// @Tags process
// @Accept json
// @Produce json
// @Param body body ProcessCreate true "Process to open"
// @Success 201 {object} ProcessResponse
// @Router /processes [post]
func (e *ProcessController) openProcessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var processCreate ProcessCreate
		if err := c.ShouldBindJSON(&processCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		process, err := e.service.OpenProcess(getClaims(c).UserId, processCreate.toModel())
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(201, toProcessResponse(process))
	}
}

// @id GetProcesses
// @Description Lists the caller's own processes
// @Tags process
// @Produce json
// @Success 200 {array} ProcessResponse
// @Router /processes [get]
func (e *ProcessController) getProcessesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		processes, err := e.service.GetProcessesForRequester(getClaims(c).UserId)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, utils.Map(processes, toProcessResponse))
	}
}

// @id GetProcess
// @Description Fetches one of the caller's processes
// @Tags process
// @Produce json
// @Param id path int true "Process ID"
// @Success 200 {object} ProcessResponse
// @Router /processes/{id} [get]
func (e *ProcessController) getProcessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		process, err := e.service.GetProcessForRequester(id, getClaims(c).UserId)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, toProcessResponse(process))
	}
}

// @id UpdateProcess
// @Description Updates the request fields of an editable process
// @Tags process
// @Accept json
// @Produce json
// @Param id path int true "Process ID"
// @Param body body ProcessCreate true "Updated fields"
// @Success 200 {object} ProcessResponse
// @Router /processes/{id} [patch]
func (e *ProcessController) updateProcessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		var processUpdate ProcessCreate
		if err := c.ShouldBindJSON(&processUpdate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		process, err := e.service.UpdateProcess(getClaims(c).UserId, id, processUpdate.toModel())
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, toProcessResponse(process))
	}
}

// @id SubmitProcess
// @Description Submits a draft or returned process for committee review
// @Tags process
// @Produce json
// @Param id path int true "Process ID"
// @Success 200 {object} SubmissionResponse
// @Router /processes/{id}/submit [post]
func (e *ProcessController) submitProcessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		result, err := e.service.SubmitProcess(getClaims(c).UserId, id)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, &SubmissionResponse{
			Process:     toProcessResponse(result.Process),
			TotalPoints: result.TotalPoints,
			Fallbacks:   result.Fallbacks,
		})
	}
}

// @id DeleteProcess
// @Description Soft-deletes a draft or rejected process
// @Tags process
// @Produce json
// @Param id path int true "Process ID"
// @Success 200
// @Router /processes/{id} [delete]
func (e *ProcessController) deleteProcessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if err := e.service.DeleteProcess(getClaims(c).UserId, id); err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, gin.H{})
	}
}

// @id GetProcessDocument
// @Description Renders the request document for one of the caller's processes
// @Tags process
// @Produce plain
// @Param id path int true "Process ID"
// @Success 200 {string} string
// @Router /processes/{id}/document [get]
func (e *ProcessController) getProcessDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		document, err := e.documentService.RenderProcessDocument(getClaims(c).UserId, id)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.Data(200, "text/plain; charset=utf-8", document)
	}
}

type ProcessCreate struct {
	Type             repository.ProcessType `json:"type" binding:"required"`
	TableId          int                    `json:"table_id"`
	OriginClass      string                 `json:"origin_class" binding:"required"`
	OriginLevel      string                 `json:"origin_level" binding:"required"`
	DestinationClass string                 `json:"destination_class" binding:"required"`
	DestinationLevel string                 `json:"destination_level" binding:"required"`
	IntersticeStart  time.Time              `json:"interstice_start" binding:"required"`
	IntersticeEnd    time.Time              `json:"interstice_end" binding:"required"`
	Campus           string                 `json:"campus"`
	City             string                 `json:"city"`
}

func (e *ProcessCreate) toModel() *repository.CareerProcess {
	return &repository.CareerProcess{
		Type:             e.Type,
		TableId:          e.TableId,
		OriginClass:      e.OriginClass,
		OriginLevel:      e.OriginLevel,
		DestinationClass: e.DestinationClass,
		DestinationLevel: e.DestinationLevel,
		IntersticeStart:  e.IntersticeStart,
		IntersticeEnd:    e.IntersticeEnd,
		Campus:           e.Campus,
		City:             e.City,
	}
}

type ProcessResponse struct {
	Id               int                      `json:"id"`
	RequesterId      int                      `json:"requester_id"`
	TableId          int                      `json:"table_id"`
	Type             repository.ProcessType   `json:"type"`
	Status           repository.ProcessStatus `json:"status"`
	OriginClass      string                   `json:"origin_class"`
	OriginLevel      string                   `json:"origin_level"`
	DestinationClass string                   `json:"destination_class"`
	DestinationLevel string                   `json:"destination_level"`
	IntersticeStart  time.Time                `json:"interstice_start"`
	IntersticeEnd    time.Time                `json:"interstice_end"`
	Campus           string                   `json:"campus"`
	City             string                   `json:"city"`
	FinalPoints      *decimal.Decimal         `json:"final_points"`
	DecisionComment  *string                  `json:"decision_comment"`
}

type SubmissionResponse struct {
	Process     *ProcessResponse           `json:"process"`
	TotalPoints decimal.Decimal            `json:"total_points"`
	Fallbacks   []*scoring.FormulaFallback `json:"formula_fallbacks"`
}

func toProcessResponse(process *repository.CareerProcess) *ProcessResponse {
	return &ProcessResponse{
		Id:               process.Id,
		RequesterId:      process.RequesterId,
		TableId:          process.TableId,
		Type:             process.Type,
		Status:           process.Status,
		OriginClass:      process.OriginClass,
		OriginLevel:      process.OriginLevel,
		DestinationClass: process.DestinationClass,
		DestinationLevel: process.DestinationLevel,
		IntersticeStart:  process.IntersticeStart,
		IntersticeEnd:    process.IntersticeEnd,
		Campus:           process.Campus,
		City:             process.City,
		FinalPoints:      process.FinalPoints,
		DecisionComment:  process.DecisionComment,
	}
}
