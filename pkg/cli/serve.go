package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/tradefin-lab/rfpcore/pkg/cli/config"
	httpctrl "github.com/tradefin-lab/rfpcore/pkg/controller/http"
	"github.com/tradefin-lab/rfpcore/pkg/controller/msg"
	"github.com/tradefin-lab/rfpcore/pkg/service/bus"
	"github.com/tradefin-lab/rfpcore/pkg/usecase"
	"github.com/tradefin-lab/rfpcore/pkg/utils/async"
	"github.com/tradefin-lab/rfpcore/pkg/utils/logging"
	"github.com/tradefin-lab/rfpcore/pkg/utils/safe"
)

func cmdServe() *cli.Command {
	var addr string
	var repoCfg config.Repository
	var busCfg config.Bus
	var msgCfg config.Messaging

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("RFPCORE_ADDR"),
			Destination: &addr,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, busCfg.Flags()...)
	flags = append(flags, msgCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the HTTP server and the message consumer",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := msgCfg.Validate(); err != nil {
				return err
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			// Initialize the message bus
			publisher, subscriber, err := busCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize message bus")
			}
			defer safe.Close(ctx, publisher)

			outbound := bus.NewOutboundPublisher(publisher,
				msgCfg.PublishMaxRetries(), msgCfg.PublishMaxDelay())

			uc := usecase.New(repo, outbound, msgCfg.CompanyStaticID())

			// Start the inbound message processor
			processor := msg.New(subscriber, uc.Ingest,
				msg.WithWorkers(msgCfg.ConsumeWorkers()),
				msg.WithRetryDelay(msgCfg.ConsumeRetryDelay()),
			)
			if err := processor.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start message processor")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			async.Dispatch(ctx, func(ctx context.Context) error {
				logging.From(ctx).Info("Starting HTTP server",
					"addr", addr,
					"company_static_id", msgCfg.CompanyStaticID(),
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
				return nil
			})

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				processor.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop consuming before tearing down the HTTP surface so
				// in-flight deliveries finish against a live repository.
				processor.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
