package handler

import (
	"net/http"
	"strconv"

	"moneta-backend/internal/models"
	"moneta-backend/internal/services/importer"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ImportHandler struct {
	service *importer.ImportService
}

func NewImportHandler(service *importer.ImportService) *ImportHandler {
	return &ImportHandler{service: service}
}

// Upload stages a CSV statement export against a target account.
func (h *ImportHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	accountID, err := uuid.Parse(c.PostForm("accountId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account ID"})
		return
	}

	summary, err := h.service.Upload(currentUser(c), accountID, header.Filename, file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ImportHandler) ListBatches(c *gin.Context) {
	summaries, err := h.service.ListBatches(currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *ImportHandler) GetBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	summary, err := h.service.GetBatch(currentUser(c), batchID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ImportHandler) ListRows(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if size <= 0 || size > 200 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	status := models.ImportRowStatus(c.Query("status"))

	rowsPage, err := h.service.ListRows(currentUser(c), batchID, status, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rowsPage)
}

func (h *ImportHandler) Commit(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	var opts importer.CommitOptions
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&opts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}

	result, err := h.service.Commit(currentUser(c), batchID, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) DeleteBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	if err := h.service.DeleteBatch(currentUser(c), batchID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "batch deleted"})
}
