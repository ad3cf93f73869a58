// Package webapi exposes the audiobook pipeline over HTTP.
package webapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storyvoice-server-go/internal/app/services"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
	"storyvoice-server-go/internal/platform/observability"
	httptransport "storyvoice-server-go/internal/transport/http"
)

// Service is the web API transport over the audiobook service.
type Service struct {
	logger     *logging.Logger
	audiobooks *services.AudiobookService
}

func NewService(audiobooks *services.AudiobookService, logger *logging.Logger) (*Service, error) {
	if audiobooks == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "webapi.new", "audiobook service is required")
	}
	if logger == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "webapi.new", "logger is required")
	}
	return &Service{logger: logger, audiobooks: audiobooks}, nil
}

// Register mounts the API routes on the given group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/audiobooks", s.handleSubmit)
	router.GET("/audiobooks", s.handleList)
	router.GET("/audiobooks/:id", s.handleStatus)
	router.DELETE("/audiobooks/:id", s.handleCancel)

	router.GET("/voices", s.handleVoices)
	router.GET("/system", s.handleSystem)

	s.logger.InfoTag("WebAPI", "audiobook routes registered")
	return nil
}

func (s *Service) handleSubmit(c *gin.Context) {
	var req services.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "malformed request body", nil)
		return
	}

	runID, err := s.audiobooks.Submit(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if platformerrors.IsKind(err, platformerrors.KindValidation) {
			status = http.StatusBadRequest
		}
		httptransport.RespondError(c, status, err.Error(), nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusAccepted, gin.H{"run_id": runID}, "generation started")
}

func (s *Service) handleList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.audiobooks.List(c.Request.Context(), limit)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, runs, "")
}

func (s *Service) handleStatus(c *gin.Context) {
	status, err := s.audiobooks.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		code := http.StatusInternalServerError
		if platformerrors.IsKind(err, platformerrors.KindValidation) {
			code = http.StatusNotFound
		}
		httptransport.RespondError(c, code, err.Error(), nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, status, "")
}

func (s *Service) handleCancel(c *gin.Context) {
	if !s.audiobooks.Cancel(c.Param("id")) {
		httptransport.RespondError(c, http.StatusNotFound, "no such active run", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, nil, "run canceled")
}

func (s *Service) handleVoices(c *gin.Context) {
	voices, err := s.audiobooks.Voices(c.Request.Context())
	if err != nil {
		httptransport.RespondError(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, voices, "")
}

func (s *Service) handleSystem(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, observability.Snapshot(c.Request.Context()), "")
}
