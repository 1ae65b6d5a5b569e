package driven

import (
	"context"

	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

// SourceResolver looks up display metadata for a generation source reference.
type SourceResolver interface {
	Resolve(ctx context.Context, sourceURL string) (model.SourceInfo, error)
}
