package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/chris/transaction-orchestrator/pkg/app"
	"github.com/chris/transaction-orchestrator/pkg/config"
	"github.com/chris/transaction-orchestrator/pkg/reconciler"
)

var sweeper *reconciler.Reconciler

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	app.NewLogger(cfg)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to initialise dependencies: %v", err)
	}

	sweeper = reconciler.New(a.Store, a.Publisher, cfg.StuckTransactionThreshold, cfg.ReconciliationWindow)
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) error {
	_, err := sweeper.Sweep(ctx)
	return err
}

func main() {
	lambda.Start(HandleRequest)
}
