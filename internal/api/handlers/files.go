package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/services"
	"github.com/securedocs/backend/internal/storage"
)

// FileHandler serves the local copy of user files.
type FileHandler struct {
	files         *services.FileManager
	chunks        *services.ChunkSessions
	maxUploadSize int64
}

func NewFileHandler(files *services.FileManager, chunks *services.ChunkSessions, maxUploadSize int64) *FileHandler {
	return &FileHandler{files: files, chunks: chunks, maxUploadSize: maxUploadSize}
}

// loadFile resolves the :id parameter to a file owned by the caller. It writes
// the error response and returns false when the file cannot be used.
func loadFile(c *gin.Context, files *services.FileManager) (*models.File, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}
	fileID, ok := fileIDParam(c)
	if !ok {
		return nil, false
	}

	file, err := files.Get(c.Request.Context(), userID, fileID)
	if err != nil {
		respondStoreError(c, err, "fetch file")
		return nil, false
	}
	return file, true
}

func detectMimeType(filename, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// @Summary Upload a file
// @Description Stores a file in the caller's document library
// @Tags files
// @Accept multipart/form-data
// @Param file formData file true "File to upload"
// @Produce json
// @Success 201 {object} models.File
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No file received"})
		return
	}
	if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "File exceeds the upload size limit"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to open uploaded file"})
		return
	}
	defer src.Close()

	name := filepath.Base(header.Filename)
	file, err := h.files.Store(c.Request.Context(), userID, name, detectMimeType(name, header.Header.Get("Content-Type")), src)
	if err != nil {
		log.WithError(err).WithField("userID", userID).Error("Failed to store uploaded file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to store file"})
		return
	}

	c.JSON(http.StatusCreated, file)
}

// @Summary List files
// @Tags files
// @Param state query string false "active (default) or trashed"
// @Produce json
// @Success 200 {array} models.File
// @Router /files [get]
func (h *FileHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	state := models.FileState(c.DefaultQuery("state", string(models.FileStateActive)))
	if state != models.FileStateActive && state != models.FileStateTrashed {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "state must be active or trashed"})
		return
	}

	files, err := h.files.List(c.Request.Context(), userID, state)
	if err != nil {
		respondStoreError(c, err, "fetch files")
		return
	}

	c.JSON(http.StatusOK, files)
}

// @Summary Get file by ID
// @Tags files
// @Param id path int true "File ID"
// @Produce json
// @Success 200 {object} models.File
// @Router /files/{id} [get]
func (h *FileHandler) Get(c *gin.Context) {
	file, ok := loadFile(c, h.files)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, file)
}

// @Summary Move a file to the trash
// @Tags files
// @Param id path int true "File ID"
// @Produce json
// @Success 200 {object} models.File
// @Router /files/{id} [delete]
func (h *FileHandler) Trash(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	fileID, ok := fileIDParam(c)
	if !ok {
		return
	}

	file, err := h.files.Trash(c.Request.Context(), userID, fileID)
	if err != nil {
		respondStoreError(c, err, "trash file")
		return
	}
	c.JSON(http.StatusOK, file)
}

// @Summary Restore a file from the trash
// @Tags files
// @Param id path int true "File ID"
// @Produce json
// @Success 200 {object} models.File
// @Router /files/{id}/restore [post]
func (h *FileHandler) Restore(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	fileID, ok := fileIDParam(c)
	if !ok {
		return
	}

	file, err := h.files.Restore(c.Request.Context(), userID, fileID)
	if err != nil {
		respondStoreError(c, err, "restore file")
		return
	}
	c.JSON(http.StatusOK, file)
}

// @Summary Download the local copy of a file
// @Tags files
// @Param id path int true "File ID"
// @Produce octet-stream
// @Success 200 {file} binary "File content"
// @Router /files/{id}/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	file, ok := loadFile(c, h.files)
	if !ok {
		return
	}

	content, err := h.files.Open(c.Request.Context(), file)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Stored content not found"})
			return
		}
		respondStoreError(c, err, "open file")
		return
	}
	defer content.Close()

	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, content, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.Name),
	})
}

type initChunkedRequest struct {
	Filename    string `json:"filename" binding:"required"`
	FileType    string `json:"fileType"`
	TotalSize   int64  `json:"totalSize" binding:"min=0"`
	TotalChunks int    `json:"totalChunks" binding:"required,min=1"`
}

func respondChunkError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChunkSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Upload ID not found"})
	case errors.Is(err, services.ErrChunkedTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrChunkIndexInvalid),
		errors.Is(err, services.ErrChunksMissing),
		errors.Is(err, services.ErrChunkedSizeMismatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.WithError(err).Error("Chunked upload failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Chunked upload failed"})
	}
}

// @Summary Start a chunked upload
// @Tags uploads
// @Accept json
// @Produce json
// @Success 200 {object} services.ChunkStatus
// @Router /uploads [post]
func (h *FileHandler) InitChunked(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req initChunkedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request parameters: " + err.Error()})
		return
	}

	status, err := h.chunks.Init(userID, req.Filename, detectMimeType(req.Filename, req.FileType), req.TotalSize, req.TotalChunks)
	if err != nil {
		respondChunkError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// @Summary Upload one chunk
// @Tags uploads
// @Accept multipart/form-data
// @Param uploadId path string true "Upload ID"
// @Param chunkIndex query int true "Zero based chunk index"
// @Param chunk formData file true "Chunk data"
// @Produce json
// @Success 200 {object} services.ChunkStatus
// @Router /uploads/{uploadId}/chunks [post]
func (h *FileHandler) UploadChunk(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	chunkIndex, err := strconv.Atoi(c.Query("chunkIndex"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid chunkIndex parameter"})
		return
	}

	header, err := c.FormFile("chunk")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to get chunk data: " + err.Error()})
		return
	}
	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to open uploaded chunk"})
		return
	}
	defer src.Close()

	status, err := h.chunks.PutChunk(userID, c.Param("uploadId"), chunkIndex, src)
	if err != nil {
		respondChunkError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// @Summary Get chunked upload status
// @Tags uploads
// @Param uploadId path string true "Upload ID"
// @Produce json
// @Success 200 {object} services.ChunkStatus
// @Router /uploads/{uploadId} [get]
func (h *FileHandler) ChunkedStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := h.chunks.Status(userID, c.Param("uploadId"))
	if err != nil {
		respondChunkError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// @Summary Finish a chunked upload
// @Description Assembles the received chunks into a new file
// @Tags uploads
// @Param uploadId path string true "Upload ID"
// @Produce json
// @Success 201 {object} models.File
// @Router /uploads/{uploadId}/complete [post]
func (h *FileHandler) CompleteChunked(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	file, err := h.chunks.Complete(c.Request.Context(), userID, c.Param("uploadId"))
	if err != nil {
		respondChunkError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}
