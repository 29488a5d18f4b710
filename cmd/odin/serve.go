package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/odin/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()
		if port > 0 {
			a.cfg.Server.Port = port
		}

		deps, err := a.apiDeps(cmd.Context())
		if err != nil {
			return err
		}
		if a.cfg.Server.APIToken == "" {
			printWarning("ODIN_API_TOKEN is not set; the API accepts unauthenticated requests")
		}

		return serveHTTP(cmd.Context(), a, api.NewHandler(deps))
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		deps, err := a.apiDeps(cmd.Context())
		if err != nil {
			return err
		}
		return server.ServeStdio(api.NewMCPServer(deps, version))
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
}

// apiDeps opens what the API serves. The graph store is optional: when it
// is unreachable the graph endpoints report unavailable and update-mode
// translation runs against an empty graph.
func (a *app) apiDeps(ctx context.Context) (api.Deps, error) {
	tr, _, err := a.translator(ctx)
	if err != nil {
		return api.Deps{}, err
	}
	st, err := a.openStore()
	if err != nil {
		return api.Deps{}, err
	}
	r, err := a.retriever()
	if err != nil {
		return api.Deps{}, err
	}

	deps := api.Deps{
		Translator: tr,
		Runs:       st,
		Search:     r,
		Token:      a.cfg.Server.APIToken,
		Log:        a.log,
	}
	if g, err := a.openGraph(ctx); err != nil {
		a.log.Warn("graph store unavailable", "error", err)
	} else {
		deps.Graph = g
	}
	return deps, nil
}

func serveHTTP(ctx context.Context, a *app, handler http.Handler) error {
	addr := a.cfg.Server.Address()
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
