package notifications

import "github.com/pressbeat/press-tracker/internal/models"

// NotificationInterface defines the contract for digest delivery
type NotificationInterface interface {
	SendDigest(snapshot *models.Snapshot) error
}
