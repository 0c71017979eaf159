package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/saucedemo/internal/common"
	"github.com/ternarybob/saucedemo/internal/demosite"
)

var (
	servePort    int
	serveHost    string
	serveCatalog string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the offline replica storefront",
	Long: `Serves a local replica of the storefront with the same selectors and cart
endpoint. Point target.base_url (or --base-url) at it to run the suite offline.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8090, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to listen on")
	serveCmd.Flags().StringVar(&serveCatalog, "catalog", "", "Catalog TOML file (defaults to the embedded catalog)")
}

func runServe(cmd *cobra.Command, args []string) error {
	catalog, err := demosite.LoadCatalog(serveCatalog)
	if err != nil {
		return err
	}

	srv, err := demosite.New(catalog, logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	common.SafeGo(logger, "demosite", func() {
		errCh <- srv.Serve(ln)
	}, func(r interface{}) {
		errCh <- fmt.Errorf("demo storefront panicked: %v", r)
	})

	logger.Info().
		Str("url", fmt.Sprintf("http://%s/", addr)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Interrupt signal received")
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
