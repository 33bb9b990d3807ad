package main

import (
	"CloudHunter/config"
	"CloudHunter/internal/repo"
	"CloudHunter/internal/worker"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config.InitConfig()
	repo.InitDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("upload incident worker started")
	if err := worker.RunIncidentWorker(ctx, repo.Db, config.AppConfig); err != nil {
		log.Fatalf("upload incident worker stopped: %v", err)
	}
}
