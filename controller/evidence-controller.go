package controller

import (
	"fmt"
	"time"

	"facad/app_error"
	"facad/config"
	"facad/repository"
	"facad/service"
	"facad/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EvidenceController struct {
	service *service.EvidenceService
}

func NewEvidenceController(db *gorm.DB) *EvidenceController {
	return &EvidenceController{
		service: service.NewEvidenceService(db, service.NewDiskEvidenceStore(config.Env().EvidenceRoot)),
	}
}

func setupEvidenceController(db *gorm.DB) []RouteInfo {
	e := NewEvidenceController(db)
	routes := []RouteInfo{
		{Method: "POST", Path: "/evidence", HandlerFunc: e.uploadHandler(), Authenticated: true},
		{Method: "GET", Path: "/evidence", HandlerFunc: e.listHandler(), Authenticated: true},
		{Method: "GET", Path: "/evidence/:id/content", HandlerFunc: e.contentHandler(), Authenticated: true},
		{Method: "DELETE", Path: "/evidence/:id", HandlerFunc: e.deleteHandler(), Authenticated: true},
	}
	return routes
}

// @id UploadEvidence
// @Description Uploads an evidence file owned by the caller
// @Tags evidence
// @Accept mpfd
// @Produce json
// @Param file formData file true "Evidence file"
// @Success 201 {object} EvidenceResponse
// @Router /evidence [post]
func (e *EvidenceController) uploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		content, err := header.Open()
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		defer utils.Closer(content)()

		file, err := e.service.UploadEvidence(getClaims(c).UserId, header.Filename, header.Header.Get("Content-Type"), content)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(201, toEvidenceResponse(file))
	}
}

// @id ListEvidence
// @Description Lists the caller's evidence files
// @Tags evidence
// @Produce json
// @Success 200 {array} EvidenceResponse
// @Router /evidence [get]
func (e *EvidenceController) listHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		files, err := e.service.ListEvidence(getClaims(c).UserId)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, utils.Map(files, toEvidenceResponse))
	}
}

// @id GetEvidenceContent
// @Description Streams the bytes of one of the caller's evidence files
// @Tags evidence
// @Produce octet-stream
// @Param id path string true "Evidence file ID"
// @Success 200 {file} binary
// @Router /evidence/{id}/content [get]
func (e *EvidenceController) contentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileId, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		file, reader, err := e.service.OpenEvidenceContent(getClaims(c).UserId, fileId)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		defer utils.Closer(reader)()
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
		c.DataFromReader(200, file.Size, file.MimeType, reader, nil)
	}
}

// @id DeleteEvidence
// @Description Soft-deletes one of the caller's evidence files
// @Tags evidence
// @Produce json
// @Param id path string true "Evidence file ID"
// @Success 200
// @Router /evidence/{id} [delete]
func (e *EvidenceController) deleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileId, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if err := e.service.DeleteEvidence(getClaims(c).UserId, fileId); err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, gin.H{})
	}
}

type EvidenceResponse struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func toEvidenceResponse(file *repository.EvidenceFile) *EvidenceResponse {
	return &EvidenceResponse{
		Id:        file.Id,
		Name:      file.Name,
		MimeType:  file.MimeType,
		Size:      file.Size,
		CreatedAt: file.CreatedAt,
	}
}
