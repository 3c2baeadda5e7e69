package main

import (
	"context"
	"log"

	"github.com/twara244/feeling-dumb/internal/bootstrap"
	"github.com/twara244/feeling-dumb/internal/config"
	"github.com/twara244/feeling-dumb/internal/server"
	"github.com/twara244/feeling-dumb/internal/tracer"
	"github.com/twara244/feeling-dumb/pkg/database"
)

func main() {
	// 1. Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 2. Configuration
	cfg := config.Load()

	// 3. Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Dependency container
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Logger.Sync()

	// 5. HTTP server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
