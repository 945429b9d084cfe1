package database

import (
	"log"

	"clubledger/migrations"
)

// RunMigrations runs all database migrations
func RunMigrations() error {
	if err := migrations.RunMigrations(DB); err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}
	return nil
}
