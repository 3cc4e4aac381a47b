package logger

import (
	"log"
	"time"
)

// Debug logs a debug message with consistent format
// Format: [DEBUG] timestamp=... account_id=... action=... details=...
func Debug(accountID int64, action, details string) {
	timestamp := time.Now().Format(time.RFC3339)
	log.Printf("[DEBUG] timestamp=%s account_id=%d action=%s details=%s", timestamp, accountID, action, details)
}

// Info logs an informational message in the same key=value format
func Info(action, details string) {
	timestamp := time.Now().Format(time.RFC3339)
	log.Printf("[INFO] timestamp=%s action=%s details=%s", timestamp, action, details)
}

// Error logs an error with the action that failed
func Error(action string, err error) {
	timestamp := time.Now().Format(time.RFC3339)
	log.Printf("[ERROR] timestamp=%s action=%s error=%s", timestamp, action, err.Error())
}
