package main

import (
	"context"
	"log"
	"os"

	"ai-plantcare-be/internal/model"
	"ai-plantcare-be/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	ctx := context.Background()

	// 2. Pre-Migration: extensions must exist before GORM sees vector columns
	log.Println("Step 1: Setting up extensions...")
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect for extension setup:", err)
	}
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if _, err := conn.Exec(ctx, sql); err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}
	conn.Close(ctx)

	// 3. Connect via GORM
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.ContextEntry{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Post-Migration: similarity search indexes
	log.Println("Step 3: Creating indexes...")
	postMigrationSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_context_entries_user_id ON context_entries (user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_context_entries_embedding ON context_entries
		 USING hnsw (embedding_value vector_cosine_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session_created ON chat_messages (chat_session_id, created_at);`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed via GORM.")
}
