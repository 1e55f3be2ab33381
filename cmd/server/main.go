// Package main implements the entry point for the ReelForge API server,
// which accepts product submissions and turns them into short promotional
// videos through an asynchronous LLM-backed pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command (up, down, status) and exit")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

// run wires the application together and either executes a migration
// command or starts the server. Split from main so errors flow back to a
// single exit point.
func run(migrateCmd string) error {
	app, err := newApplication()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	if migrateCmd != "" {
		return runMigrationCommand(app.db, migrateCmd)
	}

	// Schema must be current before stores and recovery touch it.
	if err := runMigrationCommand(app.db, "up"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		return err
	}

	return nil
}
