// Package seed installs the built-in drill catalog and the default
// extraction model version.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
)

// Store is the repository subset seeding needs.
type Store interface {
	UpsertDrill(ctx context.Context, d *model.DrillDefinition) (*model.DrillDefinition, error)
	ActiveModelVersion(ctx context.Context) (string, error)
	ActivateModelVersion(ctx context.Context, version, notes string, at time.Time) (*model.ModelVersion, error)
}

// Summary reports what Catalog wrote.
type Summary struct {
	Drills           int
	ActivatedVersion string
}

// Catalog upserts every built-in drill by slug and activates
// model.DefaultModelVersion when no version is active. It is idempotent.
func Catalog(ctx context.Context, store Store, now time.Time) (Summary, error) {
	var sum Summary
	for _, d := range model.DrillCatalog() {
		drill := d
		if _, err := store.UpsertDrill(ctx, &drill); err != nil {
			return sum, fmt.Errorf("seed drill %s: %w", d.Slug, err)
		}
		sum.Drills++
	}

	active, err := store.ActiveModelVersion(ctx)
	if err != nil {
		return sum, fmt.Errorf("seed model version: %w", err)
	}
	if active == "" {
		if _, err := store.ActivateModelVersion(ctx, model.DefaultModelVersion, "Initial placeholder extraction model.", now); err != nil {
			return sum, fmt.Errorf("seed model version: %w", err)
		}
		sum.ActivatedVersion = model.DefaultModelVersion
	}

	logger.Named("seed").Info(ctx, "catalog seeded",
		logger.Int("drills", sum.Drills),
		logger.String("activatedVersion", sum.ActivatedVersion))
	return sum, nil
}
