package spawn

import (
	"context"
	"fmt"

	"github.com/udisondev/npcspawn/internal/model"
)

// DeclarationSource produces spawn declarations (world-data files, object storage).
type DeclarationSource interface {
	Declarations(ctx context.Context) ([]model.Declaration, error)
}

// ReloadFrom reads declarations from src and reloads the scheduler with them.
// A failing source leaves the current entry set untouched.
func (s *Scheduler) ReloadFrom(ctx context.Context, src DeclarationSource) (int, error) {
	decls, err := src.Declarations(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading spawn declarations: %w", err)
	}
	return s.Reload(ctx, decls)
}
