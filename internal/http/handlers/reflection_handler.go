package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/services"
)

// CreateReflection godoc
// @ID          createReflection
// @Summary     Generate a reflection
// @Description Asks the configured model for a short supportive reflection on an entry draft. Nothing is stored.
// @Tags        Reflections
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ReflectionRequest  true  "Draft"
// @Success     200   {object}  handlers.ReflectionResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid draft"
// @Failure     401   {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     502   {object}  handlers.ErrorResponse  "Generation failed"
// @Failure     503   {object}  handlers.ErrorResponse  "Reflections not configured"
// @Router      /reflections [post]
func (h *Handlers) CreateReflection(c *gin.Context) {
	if !h.reflectionsAvailable() {
		fail(c, http.StatusServiceUnavailable, ErrCodeReflectionUnavailable, "reflections are not configured")
		return
	}
	var req ReflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}
	mood := domain.DefaultMood
	if strings.TrimSpace(req.Mood) != "" {
		m, err := domain.ParseMood(req.Mood)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		mood = m
	}

	text, err := h.reflect.Generate(c.Request.Context(), services.ReflectionRequest{
		Title:   req.Title,
		Content: req.Content,
		Mood:    mood,
	})
	switch {
	case errors.Is(err, services.ErrUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeReflectionUnavailable, "reflections are not configured")
		return
	case err != nil:
		fail(c, http.StatusBadGateway, ErrCodeGenerationFailed, "failed to generate reflection", err)
		return
	}
	ok(c, http.StatusOK, ReflectionResponse{Reflection: text})
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{Status: "ok", Reflections: h.reflectionsAvailable()})
}
