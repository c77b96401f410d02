package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kbchat/internal/app"
	"kbchat/internal/transport/http/response"
)

type DocumentHandler struct {
	docService *app.DocumentService
}

func NewDocumentHandler(docService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// Upload accepts one multipart file and registers it as a knowledge-base
// source document.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded file failed")
		return
	}
	defer file.Close()

	doc, err := h.docService.Upload(c.Request.Context(), app.UploadInput{
		UserID:      userID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		h.writeDocumentError(c, err, "upload document failed")
		return
	}
	response.OK(c, doc)
}

// List returns the user's registered documents.
func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.docService.List(userID)
	if err != nil {
		h.writeDocumentError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

// Download redirects the caller to a presigned read URL.
func (h *DocumentHandler) Download(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	url, err := h.docService.PresignURL(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeDocumentError(c, err, "presign document failed")
		return
	}
	response.OK(c, gin.H{"url": url})
}

// Delete removes the document and resynchronizes the index.
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.docService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeDocumentError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deletedDocumentId": c.Param("id")})
}

// Resync starts an ingestion job and surfaces any trigger failure.
func (h *DocumentHandler) Resync(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	jobID, err := h.docService.Resync(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailure, "start ingestion job failed")
		return
	}
	response.OK(c, gin.H{"jobId": jobID})
}

func (h *DocumentHandler) writeDocumentError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
