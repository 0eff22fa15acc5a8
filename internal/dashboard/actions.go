package dashboard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/chatsync/internal/models"
)

// Sender is the outbound pipeline behind the operator actions.
// *pipeline.Pipeline satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, c models.Container, text string, repliedTo *models.Message) (*models.Message, error)
	ResendMessage(ctx context.Context, msg *models.Message, actor *models.UserRef) error
	ResendMedia(ctx context.Context, msg *models.Message, actor *models.UserRef) error
	LoadOlder(ctx context.Context, c models.Container, cursor string) (string, error)
}

type activeRequest struct {
	Kind models.ContainerKind `json:"kind" binding:"required"`
	UUID string               `json:"uuid" binding:"required"`
}

// handleSetActive opens a container and loads its latest page.
func handleSetActive(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req activeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !req.Kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be room or discussion"})
			return
		}
		container := models.Container{Kind: req.Kind, UUID: req.UUID}
		opts.Store.SetActive(container)

		var next string
		if opts.Sender != nil {
			var err error
			next, err = opts.Sender.LoadOlder(c.Request.Context(), container, "")
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"active": container, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"active": container, "next": next})
	}
}

type sendRequest struct {
	Text    string `json:"text" binding:"required"`
	ReplyTo string `json:"reply_to"`
}

// handleSend sends a text message to the open container.
func handleSend(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Sender == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "sender not configured"})
			return
		}
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		active := opts.Store.Active()
		if active.IsZero() {
			c.JSON(http.StatusConflict, gin.H{"error": "no active container"})
			return
		}
		var repliedTo *models.Message
		if req.ReplyTo != "" {
			m, ok := opts.Store.Message(req.ReplyTo)
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "reply target not found"})
				return
			}
			repliedTo = m
		}
		msg, err := opts.Sender.SendMessage(c.Request.Context(), active, req.Text, repliedTo)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// handleResend retransmits a failed or pending message. Media messages go
// through the media resend and need the local file bytes.
func handleResend(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Sender == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "sender not configured"})
			return
		}
		msg, ok := opts.Store.Message(c.Param("uuid"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		if msg.Status == models.StatusSent {
			c.JSON(http.StatusConflict, gin.H{"error": "message already sent"})
			return
		}

		var err error
		if len(msg.Media) > 0 {
			if len(msg.Media[0].File) == 0 {
				c.JSON(http.StatusConflict, gin.H{"error": "no local file to resend"})
				return
			}
			err = opts.Sender.ResendMedia(c.Request.Context(), msg, opts.Actor)
		} else {
			err = opts.Sender.ResendMessage(c.Request.Context(), msg, opts.Actor)
		}
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"failed": failedRows(opts.Store)})
	}
}
