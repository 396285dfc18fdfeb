package database_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/wonny/aegis-options/pkg/config"
	"github.com/wonny/aegis-options/pkg/database"
)

// Example demonstrates opening the optional run-history database
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg)
	if errors.Is(err, database.ErrDisabled) {
		fmt.Println("Run history disabled")
		return
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}

	fmt.Printf("Database is healthy: %v\n", status.Healthy)
	fmt.Printf("Max connections: %d\n", status.Stats.MaxConns)
}
