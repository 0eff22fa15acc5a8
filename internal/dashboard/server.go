// Package dashboard serves a JSON view of the console state and an SSE
// stream of store changes, plus the operator actions: opening a
// container, sending and resending messages.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/chatsync/internal/health"
	"github.com/zulandar/chatsync/internal/models"
	"github.com/zulandar/chatsync/internal/notify"
	"github.com/zulandar/chatsync/internal/store"
)

// JournalReader is the read side of the delivery journal.
type JournalReader interface {
	History(messageUUID string) ([]models.DeliveryRecord, error)
	Failures(since time.Time, limit int) ([]models.DeliveryRecord, error)
}

// HealthSource exposes the connection banner and the forced refresh.
type HealthSource interface {
	Banner() health.Banner
	ForceRefresh(ctx context.Context) error
}

// NotificationQueue is the persisted mobile notification channel.
type NotificationQueue interface {
	Pending(ctx context.Context, limit int) ([]models.NotificationRecord, error)
	MarkDelivered(ctx context.Context, id uint) error
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Store         *store.Store
	Journal       JournalReader           // optional
	Health        HealthSource            // optional
	Visibility    *notify.VisibilityState // optional
	Notifications NotificationQueue       // optional
	Sender        Sender                  // optional; enables send and resend
	Actor         *models.UserRef         // agent acting through the dashboard
	Port          int
	Out           io.Writer
}

// NewRouter builds the gin engine serving the dashboard routes.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("dashboard: store is required")
	}
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router, nil
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8090
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
