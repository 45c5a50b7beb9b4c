// migrate_gorm.go - Run this file to apply and check GORM migrations
// Usage: go run migrate_gorm.go

//go:build ignore

package main

import (
	"log"
	"sort"

	"github.com/sahilchouksey/course-market/config"
	"github.com/sahilchouksey/course-market/database"
	"gorm.io/gorm"
)

func main() {
	log.Println("=== GORM Migration Check ===")

	if err := config.LoadENV(); err != nil {
		log.Println("No .env file, using process environment")
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if err := store.HealthCheck(); err != nil {
		log.Fatal("Database health check failed:", err)
	}

	tables, err := store.GetDB().(*gorm.DB).Migrator().GetTables()
	if err != nil {
		log.Fatal("Failed to list tables:", err)
	}
	sort.Strings(tables)

	log.Println("✅ All migrations completed successfully!")
	log.Println("✅ Database connection healthy!")
	log.Println("Tables:")
	for _, table := range tables {
		log.Println("  -", table)
	}
}
