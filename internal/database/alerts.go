package database

import (
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"pricepulse-bot/internal/types"
)

// InsertAlert saves an alert rule to the database
func InsertAlert(userID int64, asset types.Asset, targetPrice float64, direction types.Direction) (int64, error) {
	query := `
	INSERT INTO alerts (user_id, asset, target_price, direction)
	VALUES (?, ?, ?, ?);`

	res, err := DB.Exec(query, userID, string(asset), targetPrice, string(direction))
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read alert id: %w", err)
	}

	log.Printf("Alert inserted: ID: %d, UserID: %d, Asset: %s, Target: %f, Direction: %s", id, userID, asset, targetPrice, direction)
	return id, nil
}

// GetAllAlerts fetches all alert rules from the database
func GetAllAlerts() ([]types.Alert, error) {
	query := `SELECT id, user_id, asset, target_price, direction, created_at FROM alerts;`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var alert types.Alert
		if err := rows.Scan(&alert.ID, &alert.UserID, &alert.Asset, &alert.TargetPrice, &alert.Direction, &alert.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// GetAlertsByUserID fetches all alert rules owned by a user
func GetAlertsByUserID(userID int64) ([]types.Alert, error) {
	query := `SELECT id, user_id, asset, target_price, direction, created_at FROM alerts WHERE user_id = ?;`

	rows, err := DB.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts for user %d: %w", userID, err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var alert types.Alert
		if err := rows.Scan(&alert.ID, &alert.UserID, &alert.Asset, &alert.TargetPrice, &alert.Direction, &alert.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// DeleteAlert removes an alert rule, either triggered or cancelled by its owner
func DeleteAlert(alertID int64) error {
	query := `DELETE FROM alerts WHERE id = ?;`
	_, err := DB.Exec(query, alertID)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}
