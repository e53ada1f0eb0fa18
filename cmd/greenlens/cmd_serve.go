package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"greenlens/internal/handler"
	"greenlens/internal/logging"
	"greenlens/internal/router"
	"greenlens/internal/service"
	"greenlens/internal/viewer"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	port string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the companion HTTP API",
	Long: `Serves the workflow, its progress events, findings export and the viewer
bridge over HTTP. Browser viewers attach over a websocket and are sent the
analysed document and its highlights as soon as a result is available.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.port, "port", "", "listen address (overrides server.port)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.port != "" {
		cfg.Server.Port = serveFlags.port
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := logging.New("server")

	source, err := newDocumentSource(cfg)
	if err != nil {
		return err
	}

	wf := newWorkflow(cfg)
	defer wf.Close()

	bridge := viewer.NewBridge(cfg.Viewer.ReadyTimeout, logging.New("viewer"))
	syncer := service.NewSynchronizer(bridge, source, logging.New("sync"))
	presenter := service.NewPresenter(wf, syncer, logging.New("presenter"))

	// Initialize handlers
	workflowH := handler.NewWorkflowHandler(wf, syncer, logging.New("handler"))
	viewerH := handler.NewViewerHandler(bridge, cfg.CORS.AllowedOrigins, logging.New("handler"))
	healthH := handler.NewHealthHandler(cfg.Backend.HealthURL())

	r := router.Setup(workflowH, viewerH, healthH, cfg.CORS.AllowedOrigins, logging.New("http"))

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		// request contexts end with the process so event streams do not hold up Shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return presenter.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		// closing the workflow ends open progress streams before draining connections
		wf.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		log.Info("server shutdown complete")
		return nil
	})

	return g.Wait()
}
