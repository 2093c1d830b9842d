package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Rebuilds the denormalized participant_count and prediction_count columns on
// events from their ledgers. Run after a manual data fix or a bad import.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Build connection string
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	// Connect to database
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	log.Println("Recounting participants...")
	result, err := db.Exec(`
		UPDATE events e SET participant_count = (
			SELECT COUNT(*) FROM event_participants p WHERE p.event_id = e.id
		)
	`)
	if err != nil {
		log.Fatalf("Failed to recount participants: %v", err)
	}
	rows, _ := result.RowsAffected()
	log.Printf("Updated participant_count on %d events", rows)

	log.Println("Recounting predictions...")
	result, err = db.Exec(`
		UPDATE events e SET prediction_count = (
			SELECT COUNT(*) FROM event_predictions p WHERE p.event_id = e.id
		)
	`)
	if err != nil {
		log.Fatalf("Failed to recount predictions: %v", err)
	}
	rows, _ = result.RowsAffected()
	log.Printf("Updated prediction_count on %d events", rows)

	log.Println("✅ Recount completed successfully!")
}
