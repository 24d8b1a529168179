// Package seed fills an empty database with the default units, foods and
// tags. Seeding is idempotent: rows whose name is already taken are skipped.
package seed

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/larder-io/larder/internal/crud"
	"github.com/larder-io/larder/internal/dberr"
	"github.com/larder-io/larder/internal/payload"
	"github.com/larder-io/larder/internal/repositories"
)

//go:embed data/*.json
var dataFS embed.FS

// Result counts the outcome of seeding one resource.
type Result struct {
	Resource string
	Created  int
	Skipped  int
}

// Run seeds every resource and returns one Result per resource.
func Run(ctx context.Context, database *gorm.DB, logger *zap.Logger) ([]Result, error) {
	logger = logger.Named("seed")

	units, err := seed(ctx, database, logger, "units", repositories.NewUnitRepository)
	if err != nil {
		return nil, err
	}
	foods, err := seed(ctx, database, logger, "foods", repositories.NewFoodRepository)
	if err != nil {
		return nil, err
	}
	tags, err := seed(ctx, database, logger, "tags", repositories.NewTagRepository)
	if err != nil {
		return nil, err
	}
	return []Result{units, foods, tags}, nil
}

// seed creates every item of data/<resource>.json in its own transaction so
// a duplicate does not undo the rows created before it.
func seed[M any, C repositories.Applier[M], U repositories.Applier[M]](
	ctx context.Context,
	database *gorm.DB,
	logger *zap.Logger,
	resource string,
	newRepo func(*repositories.Session) *repositories.Generic[M, C, U],
) (Result, error) {
	res := Result{Resource: resource}

	raw, err := dataFS.ReadFile("data/" + resource + ".json")
	if err != nil {
		return res, fmt.Errorf("seed: read %s: %w", resource, err)
	}
	var items []C
	if err := json.Unmarshal(raw, &items); err != nil {
		return res, fmt.Errorf("seed: decode %s: %w", resource, err)
	}

	for i := range items {
		item := &items[i]
		if err := payload.Validate(item); err != nil {
			return res, fmt.Errorf("seed: invalid %s entry: %w", resource, err)
		}

		session, err := repositories.Begin(ctx, database)
		if err != nil {
			return res, fmt.Errorf("seed: %w", err)
		}

		bridge := crud.New[C, *M, U](newRepo(session), logger)
		if _, err := bridge.CreateOne(ctx, *item); err != nil {
			_ = session.Rollback()
			if dberr.IsUniqueViolation(err) {
				var httpErr *crud.HTTPError
				if errors.As(err, &httpErr) {
					logger.Debug("skipping existing item",
						zap.String("resource", resource),
						zap.String("reason", httpErr.Detail.Message),
					)
				}
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("seed: create %s: %w", resource, err)
		}

		if err := session.Commit(); err != nil {
			return res, fmt.Errorf("seed: %w", err)
		}
		res.Created++
	}

	logger.Info("seeded resource",
		zap.String("resource", resource),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
