package handlers

import (
	"net/http"

	"tickmate/internal/cache"
	apperrors "tickmate/internal/errors"
	"tickmate/internal/identity"
	"tickmate/internal/logger"
	"tickmate/internal/service"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP endpoints over the services.
type Handlers struct {
	services *service.Services
	identity *identity.Service
	cache    *cache.Client
}

func NewHandlers(services *service.Services, ids *identity.Service, cacheClient *cache.Client) *Handlers {
	return &Handlers{
		services: services,
		identity: ids,
		cache:    cacheClient,
	}
}

// respond writes the success envelope.
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError maps a service error onto the error envelope. Internal errors
// are logged with their cause but leave the handler with a generic message.
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	message := apperrors.MessageOf(err)

	if kind == apperrors.KindInternal {
		logger.WithContext(c.Request.Context()).Error("Request failed",
			"error", err,
			"path", c.Request.URL.Path,
		)
		message = "internal error"
	}

	c.JSON(kind.HTTPStatus(), gin.H{
		"success": false,
		"error": gin.H{
			"kind":    string(kind),
			"message": message,
		},
	})
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"kind":    string(apperrors.KindValidation),
			"message": err.Error(),
		},
	})
}
