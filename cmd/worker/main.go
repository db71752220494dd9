package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/filesmanager/internal/server"
	"github.com/dmitrijs2005/filesmanager/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.QueueBackend == "memory" {
		log.Fatal("the standalone worker needs a shared queue; set queue_backend=rabbitmq")
	}

	app, err := server.NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if err := app.RunWorker(ctx); err != nil {
		log.Printf("%v", err)
		app.Close()
		os.Exit(1)
	}
}
