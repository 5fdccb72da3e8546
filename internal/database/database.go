package database

import (
	"database/sql"
	"fmt"
	"log"
)

var DB *sql.DB

func InitDB(dbPath string) error {
	var err error
	DB, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	createChatsTable := `
	CREATE TABLE IF NOT EXISTS chats (
		chat_id INTEGER PRIMARY KEY,
		user_id INTEGER,
		title TEXT,
		interval INTEGER DEFAULT 0,
		enabled_assets TEXT DEFAULT 'ALL',
		language TEXT DEFAULT 'fa'
	);`
	_, err = DB.Exec(createChatsTable)
	if err != nil {
		return fmt.Errorf("failed to create chats table: %w", err)
	}

	createAlertsTable := `
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		asset TEXT NOT NULL,
		target_price REAL NOT NULL,
		direction TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	_, err = DB.Exec(createAlertsTable)
	if err != nil {
		return fmt.Errorf("failed to create alerts table: %w", err)
	}

	createMetricsTable := `
	CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL PRIMARY KEY,
		metric_value REAL NOT NULL
	);`
	_, err = DB.Exec(createMetricsTable)
	if err != nil {
		return fmt.Errorf("failed to create metrics table: %w", err)
	}

	log.Println("Database initialized successfully.")
	return nil
}

func CloseDB() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
