package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/repository"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/service"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/workflow"
)

// respondError maps service and repository errors onto HTTP statuses.
// Workflow rejections are 422 so clients can tell "you can't do that from
// here" apart from a malformed payload; a stale status guard is 409.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case service.IsValidation(err),
		errors.Is(err, workflow.ErrUnknownTrigger),
		errors.Is(err, workflow.ErrNameRequired):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrAlreadyAttributed):
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{
		"error":   http.StatusText(status),
		"details": err.Error(),
	})
}
