package main

import (
	"context"
	"fmt"

	"github.com/ternarybob/saucedemo/internal/browser"
	"github.com/ternarybob/saucedemo/internal/common"
	"github.com/ternarybob/saucedemo/internal/saucedemo"
	"github.com/ternarybob/saucedemo/internal/suite"
)

// executeSuite starts a browser, runs the suite once and closes the browser
func executeSuite(ctx context.Context, observers ...suite.Observer) (*suite.Report, error) {
	runID := common.NewRunID()
	runLogger := logger.WithCorrelationId(runID)

	opts, err := saucedemo.RunOptions(config, logger, runID, observers...)
	if err != nil {
		return nil, err
	}

	session, err := browser.NewSession(ctx, browser.OptionsFromConfig(config), runLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	defer session.Close()

	return suite.Run(ctx, saucedemo.New(config, session, runLogger), opts), nil
}
