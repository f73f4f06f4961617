package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

// multipartOverhead covers boundaries and form fields around the file part
const multipartOverhead = 1 << 20

type UploadHandler struct {
	uploadService *services.UploadService
}

func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload stores a multipart "file" field
// POST /api/v1/uploads
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadService.MaxBytes()+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(c, "file is too large")
			return
		}
		response.BadRequest(c, "file is required")
		return
	}

	upload, err := h.uploadService.Save(actorFrom(c), fh, c.DefaultPostForm("purpose", "attachment"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, upload)
}

// GET /api/v1/uploads/:id
func (h *UploadHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "upload")
	if !ok {
		return
	}

	upload, err := h.uploadService.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, upload)
}

// DELETE /api/v1/uploads/:id
func (h *UploadHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "upload")
	if !ok {
		return
	}

	if err := h.uploadService.Delete(actorFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "upload deleted", nil)
}
