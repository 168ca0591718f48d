package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/validator"
)

// Handler serves the trivia REST operations.
type Handler struct {
	service          *app.TriviaService
	log              zerolog.Logger
	oracleConfigured bool
}

func NewHandler(service *app.TriviaService, log zerolog.Logger, oracleConfigured bool) *Handler {
	return &Handler{
		service:          service,
		log:              log.With().Str("component", "http").Logger(),
		oracleConfigured: oracleConfigured,
	}
}

type topicConfigRequest struct {
	Name        string            `json:"name" binding:"required,notblank"`
	Description string            `json:"description" binding:"required,notblank"`
	Context     string            `json:"context"`
	Difficulty  domain.Difficulty `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	FocusAreas  []string          `json:"focusAreas"`
}

type startRequest struct {
	TopicConfig    topicConfigRequest `json:"topicConfig"`
	TotalQuestions *int               `json:"totalQuestions" binding:"omitempty,min=1,max=10"`
	UserID         string             `json:"userId"`
}

func (r startRequest) toApp() app.StartRequest {
	return app.StartRequest{
		Topic: domain.TopicConfig{
			Name:        r.TopicConfig.Name,
			Description: r.TopicConfig.Description,
			Context:     r.TopicConfig.Context,
			Difficulty:  r.TopicConfig.Difficulty,
			FocusAreas:  r.TopicConfig.FocusAreas,
		},
		TotalQuestions: r.TotalQuestions,
		UserID:         r.UserID,
	}
}

type answerRequest struct {
	UserAnswer string `json:"userAnswer"`
}

type cancelResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

func (h *Handler) Start(c *gin.Context) {
	var req startRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, validationBody(fields))
		return
	}
	res, err := h.service.Start(c.Request.Context(), req.toApp())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// SubmitAnswer leaves body validation to the service so that an empty answer is rejected
// before the session is looked up.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, validationBody(validator.TranslateErrors(err)))
		return
	}
	res, err := h.service.SubmitAnswer(c.Request.Context(), c.Param("sessionId"), req.UserAnswer)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) NextQuestion(c *gin.Context) {
	res, err := h.service.NextQuestion(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Results(c *gin.Context) {
	res, err := h.service.Results(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Progress(c *gin.Context) {
	res, err := h.service.Progress(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Cancel(c *gin.Context) {
	id := c.Param("sessionId")
	if err := h.service.Cancel(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelResponse{Message: "Session cancelled", SessionID: id})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"service":          "trivia-service",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"oracleConfigured": h.oracleConfigured,
		"activeSessions":   h.service.ActiveSessions(),
	})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, body := classify(err)
	if !app.IsClientError(err) {
		h.log.Error().Err(err).
			Str("request_id", c.GetString(ContextKeyRequestID)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.JSON(status, body)
}
