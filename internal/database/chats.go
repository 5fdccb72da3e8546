package database

import (
	"database/sql"
	"fmt"

	"pricepulse-bot/internal/types"
)

// UpsertChat creates a chat subscription or refreshes its title/owner when
// the bot is re-added or promoted.
func UpsertChat(chatID, userID int64, title string) error {
	insert := `
	INSERT OR IGNORE INTO chats (chat_id, user_id, title, enabled_assets, language)
	VALUES (?, ?, ?, 'ALL', 'fa');`
	if _, err := DB.Exec(insert, chatID, userID, title); err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}

	update := `UPDATE chats SET title = ?, user_id = ? WHERE chat_id = ?;`
	if _, err := DB.Exec(update, title, userID, chatID); err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	return nil
}

// RemoveChat deletes a chat subscription when the bot leaves or is kicked.
func RemoveChat(chatID int64) error {
	if _, err := DB.Exec(`DELETE FROM chats WHERE chat_id = ?;`, chatID); err != nil {
		return fmt.Errorf("failed to remove chat: %w", err)
	}
	return nil
}

// SetChatInterval stores the broadcast period in seconds, 0 disabling it.
func SetChatInterval(chatID int64, interval int) error {
	if _, err := DB.Exec(`UPDATE chats SET interval = ? WHERE chat_id = ?;`, interval, chatID); err != nil {
		return fmt.Errorf("failed to set chat interval: %w", err)
	}
	return nil
}

// SetChatAssets stores the enabled-asset list ("ALL" or comma-separated codes).
func SetChatAssets(chatID int64, assets string) error {
	if _, err := DB.Exec(`UPDATE chats SET enabled_assets = ? WHERE chat_id = ?;`, assets, chatID); err != nil {
		return fmt.Errorf("failed to set chat assets: %w", err)
	}
	return nil
}

// GetChatAssets returns the enabled-asset list, defaulting to ALL for
// unknown chats.
func GetChatAssets(chatID int64) string {
	var assets string
	err := DB.QueryRow(`SELECT enabled_assets FROM chats WHERE chat_id = ?;`, chatID).Scan(&assets)
	if err != nil {
		return "ALL"
	}
	return assets
}

// SetChatLanguage stores the chat language, inserting a bare row for chats
// seen only through private conversations.
func SetChatLanguage(chatID int64, lang string) error {
	res, err := DB.Exec(`UPDATE chats SET language = ? WHERE chat_id = ?;`, lang, chatID)
	if err != nil {
		return fmt.Errorf("failed to set chat language: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := DB.Exec(`INSERT INTO chats (chat_id, language) VALUES (?, ?);`, chatID, lang); err != nil {
			return fmt.Errorf("failed to insert chat language: %w", err)
		}
	}
	return nil
}

// GetChatLanguage returns the chat language, defaulting to Farsi.
func GetChatLanguage(chatID int64) string {
	var lang string
	err := DB.QueryRow(`SELECT language FROM chats WHERE chat_id = ?;`, chatID).Scan(&lang)
	if err != nil {
		return "fa"
	}
	return lang
}

// GetUserChats returns the chats owned by a user.
func GetUserChats(userID int64) ([]types.Chat, error) {
	rows, err := DB.Query(`SELECT chat_id, user_id, title, interval, enabled_assets, language FROM chats WHERE user_id = ?;`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats for user %d: %w", userID, err)
	}
	defer rows.Close()

	return scanChats(rows)
}

// GetScheduledChats returns every chat with broadcasts enabled.
func GetScheduledChats() ([]types.Chat, error) {
	rows, err := DB.Query(`SELECT chat_id, user_id, title, interval, enabled_assets, language FROM chats WHERE interval > 0;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled chats: %w", err)
	}
	defer rows.Close()

	return scanChats(rows)
}

// GetChat returns a single chat subscription.
func GetChat(chatID int64) (types.Chat, error) {
	var c types.Chat
	var userID, interval sql.NullInt64
	var title sql.NullString
	err := DB.QueryRow(`SELECT chat_id, user_id, title, interval, enabled_assets, language FROM chats WHERE chat_id = ?;`, chatID).
		Scan(&c.ChatID, &userID, &title, &interval, &c.EnabledAssets, &c.Language)
	if err != nil {
		return types.Chat{}, fmt.Errorf("failed to query chat %d: %w", chatID, err)
	}
	c.UserID = userID.Int64
	c.Title = title.String
	c.Interval = int(interval.Int64)
	return c, nil
}

func scanChats(rows *sql.Rows) ([]types.Chat, error) {
	var chats []types.Chat
	for rows.Next() {
		var c types.Chat
		var userID, interval sql.NullInt64
		var title sql.NullString
		if err := rows.Scan(&c.ChatID, &userID, &title, &interval, &c.EnabledAssets, &c.Language); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		c.UserID = userID.Int64
		c.Title = title.String
		c.Interval = int(interval.Int64)
		chats = append(chats, c)
	}
	return chats, nil
}
