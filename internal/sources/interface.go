package sources

import (
	"context"

	"github.com/pressbeat/press-tracker/internal/models"
)

// Source interface defines the contract for mention providers
type Source interface {
	Name() string
	FetchMentions(ctx context.Context, brand string, window models.DateWindow) ([]models.Mention, error)
	IsEnabled() bool
}
