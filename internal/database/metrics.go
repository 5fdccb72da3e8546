package database

import (
	"database/sql"
	"fmt"
	"log"
)

// SaveMetric persists a counter value so it survives restarts.
func SaveMetric(metricName string, value float64) error {
	query := `
	INSERT OR REPLACE INTO metrics (metric_name, metric_value)
	VALUES (?, ?);`
	_, err := DB.Exec(query, metricName, value)
	if err != nil {
		return fmt.Errorf("failed to save metric: %w", err)
	}
	return nil
}

// GetMetric loads a persisted counter value, defaulting to 0.
func GetMetric(metricName string) (float64, error) {
	var value float64
	query := `SELECT metric_value FROM metrics WHERE metric_name = ?;`
	err := DB.QueryRow(query, metricName).Scan(&value)
	if err == sql.ErrNoRows {
		log.Printf("Metric %s not found in the database, defaulting to 0", metricName)
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to get metric %s: %w", metricName, err)
	}
	return value, nil
}
