package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/imagechat/internal/adapter/llm"
	"github.com/xiaot623/gogo/imagechat/internal/media"
	"github.com/xiaot623/gogo/imagechat/internal/repository"
	"github.com/xiaot623/gogo/imagechat/internal/service"
	"github.com/xiaot623/gogo/imagechat/internal/session"
	transport "github.com/xiaot623/gogo/imagechat/internal/transport/http"
	"github.com/xiaot623/gogo/imagechat/internal/transport/ws"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the image chat UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.HTTPPort = servePort
		}

		log.Printf("Starting imagechat %s...", version)
		log.Printf("HTTP Port: %d", cfg.HTTPPort)
		log.Printf("Database: %s", cfg.DatabaseURL)
		log.Printf("API base URL: %s", cfg.OpenAIBaseURL)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Initialize store
		db, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		defer db.Close()

		// Initialize upload policy
		policy, err := media.NewPolicy(ctx, media.DefaultUploadPolicy, cfg.MaxUploadBytes, cfg.MaxImagePixels)
		if err != nil {
			return fmt.Errorf("failed to initialize upload policy: %w", err)
		}

		// Per-call deadlines come from the contexts; the client timeout only
		// backstops them.
		factory := llm.NewFactory(cfg.LLMMode, cfg.OpenAIBaseURL, max(cfg.CompletionTimeout, cfg.SpeechTimeout)+5*time.Second)

		hub := ws.NewHub()
		go hub.Run(ctx)

		manager := session.NewManager(db, factory)
		if cfg.SessionIdleTimeout > 0 {
			// Sessions with an open tab are never expired.
			go manager.RunSweeper(ctx, time.Minute, cfg.SessionIdleTimeout, hub.HasActiveConnections)
		}

		svc := service.New(manager, policy, cfg)

		server := transport.NewServer(cfg, svc, hub, version)

		go func() {
			addr := fmt.Sprintf(":%d", cfg.HTTPPort)
			if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		log.Printf("UI available at http://localhost:%d/", cfg.HTTPPort)

		// Wait for interrupt signal
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down imagechat...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shutdown server gracefully: %v", err)
		}

		log.Println("imagechat stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "HTTP port (overrides HTTP_PORT)")
	rootCmd.AddCommand(serveCmd)
}
