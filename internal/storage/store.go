package storage

import (
	"context"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

// Store persists named network configurations and the summaries of networks
// assembled from them.
type Store interface {
	Init(ctx context.Context) error
	SaveConfig(ctx context.Context, record model.ConfigRecord) error
	GetConfig(ctx context.Context, name string) (model.ConfigRecord, bool, error)
	ListConfigs(ctx context.Context) ([]string, error)
	SaveAssemblySummary(ctx context.Context, summary model.AssemblySummary) error
	GetAssemblySummary(ctx context.Context, id string) (model.AssemblySummary, bool, error)
	// ListAssemblySummaries returns summaries oldest first.
	ListAssemblySummaries(ctx context.Context) ([]model.AssemblySummary, error)
}
