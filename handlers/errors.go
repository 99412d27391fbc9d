package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/pkg/logger"
)

// writeError maps engine errors to HTTP responses in one place so the route
// handlers stay thin. Unknown errors become a 500 with a generic body; the
// detail goes to the log only.
func writeError(c *gin.Context, err error) {
	var (
		validation    *document.ValidationError
		authz         *document.AuthorizationError
		invalidState  *document.InvalidStateError
		decided       *document.AlreadyDecidedError
		conflict      *document.ConflictError
		notFound      *document.NotFoundError
		notConfigured *document.NotConfiguredError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &authz):
		c.JSON(http.StatusForbidden, gin.H{"error": authz.Error()})
	case errors.As(err, &invalidState):
		c.JSON(http.StatusConflict, gin.H{"error": invalidState.Error(), "status": invalidState.Current})
	case errors.As(err, &decided):
		c.JSON(http.StatusConflict, gin.H{"error": decided.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &notConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": notConfigured.Error()})
	default:
		logger.Errorf("unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
