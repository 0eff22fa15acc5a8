package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultListLimit = 50

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	api := router.Group("/api")

	api.GET("/state", handleState(opts))
	api.GET("/tree", handleTree(opts))
	api.GET("/messages/failed", handleFailed(opts))
	api.POST("/active", handleSetActive(opts))
	api.POST("/messages", handleSend(opts))
	api.POST("/messages/:uuid/resend", handleResend(opts))
	api.GET("/previews", handlePreviews(opts))
	api.GET("/agents", handleAgents(opts))
	api.GET("/banner", handleBanner(opts))
	api.POST("/refresh", handleRefresh(opts))
	api.POST("/visibility", handleVisibility(opts))
	api.GET("/journal/failures", handleJournalFailures(opts))
	api.GET("/journal/:uuid", handleJournalHistory(opts))
	api.GET("/notifications", handleNotifications(opts))
	api.POST("/notifications/:id/ack", handleAckNotification(opts))

	api.GET("/events", handleSSE(opts.Store))
}

func handleState(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, buildState(opts.Store))
	}
}

func handleTree(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, opts.Store.Tree())
	}
}

func handleFailed(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"failed": failedRows(opts.Store)})
	}
}

func handlePreviews(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"previews": previewsByContainer(opts.Store)})
	}
}

func handleAgents(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"agents": opts.Store.AgentStatuses()})
	}
}

func handleBanner(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Health == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "health monitor not configured"})
			return
		}
		c.JSON(http.StatusOK, opts.Health.Banner())
	}
}

func handleRefresh(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Health == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "health monitor not configured"})
			return
		}
		if err := opts.Health.ForceRefresh(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, opts.Health.Banner())
	}
}

type visibilityRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

func handleVisibility(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Visibility == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "visibility not configured"})
			return
		}
		var req visibilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts.Visibility.SetHidden(*req.Hidden)
		c.JSON(http.StatusOK, gin.H{"hidden": opts.Visibility.Hidden()})
	}
}

func handleJournalHistory(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Journal == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "journal not configured"})
			return
		}
		rows, err := opts.Journal.History(c.Param("uuid"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": rows})
	}
}

func handleJournalFailures(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Journal == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "journal not configured"})
			return
		}
		var since time.Time
		if raw := c.Query("since"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
				return
			}
			since = t
		}
		rows, err := opts.Journal.Failures(since, queryLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": rows})
	}
}

func handleNotifications(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Notifications == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification queue not configured"})
			return
		}
		rows, err := opts.Notifications.Pending(c.Request.Context(), queryLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": rows})
	}
}

func handleAckNotification(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Notifications == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification queue not configured"})
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if err := opts.Notifications.MarkDelivered(c.Request.Context(), uint(id)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// queryLimit reads ?limit=, falling back to defaultListLimit.
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return n
}
