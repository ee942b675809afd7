package sv

import (
	"context"
	"fmt"

	"sharevault/internal/model"
)

// History returns up to limit recorded events, newest first.
func (s *ObjectStore) History(ctx context.Context, limit int) ([]*model.Event, error) {
	s.logger.Debug("fetching history", "limit", limit)

	events, err := s.database.ListEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}
