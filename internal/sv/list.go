package sv

import (
	"context"
	"fmt"
	"slices"

	"sharevault/internal/model"
)

// ListOwned returns the records owned by identity, oldest first.
func (s *ObjectStore) ListOwned(ctx context.Context, identity string) ([]*model.ObjectRecord, error) {
	return s.list(ctx, func(r *model.ObjectRecord) bool {
		return r.Owner == identity
	})
}

// ListSharedWith returns the records identity has been granted but does not
// own, oldest first.
func (s *ObjectStore) ListSharedWith(ctx context.Context, identity string) ([]*model.ObjectRecord, error) {
	return s.list(ctx, func(r *model.ObjectRecord) bool {
		return r.Owner != identity && r.IsSharedWith(identity)
	})
}

func (s *ObjectStore) list(ctx context.Context, keep func(*model.ObjectRecord) bool) ([]*model.ObjectRecord, error) {
	records, err := s.database.ListObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}

	out := make([]*model.ObjectRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b *model.ObjectRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}
