package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/chris/transaction-orchestrator/pkg/app"
	"github.com/chris/transaction-orchestrator/pkg/config"
	"github.com/chris/transaction-orchestrator/pkg/handlers/ingest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	app.NewLogger(cfg)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to initialise dependencies: %v", err)
	}

	lambda.Start(ingest.NewHandler(a.Service).HandleSQSEvent)
}
