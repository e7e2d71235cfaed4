package resumes

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"resume-feedback/internal/pipeline"
	"resume-feedback/internal/shared/server/middleware"
	"resume-feedback/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes", h.submit)
	rg.GET("/resumes/session", h.session)
	rg.GET("/resumes/:id", h.get)
	rg.GET("/resumes", h.list)
}

func (h *Handler) submit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	fields := map[string]string{
		"companyName":    strings.TrimSpace(c.PostForm("companyName")),
		"jobTitle":       strings.TrimSpace(c.PostForm("jobTitle")),
		"jobDescription": strings.TrimSpace(c.PostForm("jobDescription")),
	}
	// Records are JSON; invalid UTF-8 would be replaced on write.
	for name, value := range fields {
		if !utf8.ValidString(value) {
			respond.Error(c, http.StatusBadRequest, "validation_error", name+" must be valid UTF-8", nil)
			return
		}
	}

	contentType := strings.TrimSpace(fileHeader.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	req := pipeline.AnalysisRequest{
		CompanyName:    fields["companyName"],
		JobTitle:       fields["jobTitle"],
		JobDescription: fields["jobDescription"],
		File: pipeline.File{
			Name:        fileHeader.Filename,
			ContentType: contentType,
			Data:        data,
		},
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		id, err := h.Svc.Run(c.Request.Context(), userID, req)
		if err != nil {
			writeRunError(c, err)
			return
		}
		c.Set(middleware.RecordIDKey, id)
		respond.Created(c, gin.H{"recordId": id, "session": h.Svc.Session(userID)})
		return
	}

	if err := h.Svc.Start(c.Request.Context(), userID, req); err != nil {
		writeRunError(c, err)
		return
	}
	respond.Accepted(c, gin.H{"status": "accepted", "processing": true})
}

func (h *Handler) session(c *gin.Context) {
	respond.OK(c, h.Svc.Session(middleware.UserIDFromContext(c)))
}

func (h *Handler) get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set(middleware.RecordIDKey, id)

	rec, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch resume", nil)
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) list(c *gin.Context) {
	records, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}
	respond.OK(c, records)
}

func writeRunError(c *gin.Context, err error) {
	if errors.Is(err, pipeline.ErrBusy) {
		respond.Error(c, http.StatusConflict, "busy", "an analysis is already in progress", nil)
		return
	}
	var failure *pipeline.Failure
	if !errors.As(err, &failure) {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis failed", nil)
		return
	}
	respond.Error(c, statusForKind(failure.Kind), string(failure.Kind), failure.Message(), gin.H{"stage": failure.Stage})
}

func statusForKind(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindUnauthenticated:
		return http.StatusUnauthorized
	case pipeline.KindInvalidFileType:
		return http.StatusUnsupportedMediaType
	case pipeline.KindFeedbackUnavailable, pipeline.KindFeedbackMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
