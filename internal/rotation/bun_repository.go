package rotation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

var stateUpdateColumns = []string{
	"last_template_used",
	"consecutive_use_count",
	"total_posts_created",
	"last_campaign_id",
	"template_counts",
	"performance",
	"version",
	"updated_at",
}

// BunStateRepository persists rotation state with bun. Save runs inside a
// transaction and relies on row counts to detect concurrent writers.
type BunStateRepository struct {
	db  bun.IDB
	now func() time.Time
}

// NewBunStateRepository creates a bun-backed state repository.
func NewBunStateRepository(db bun.IDB) *BunStateRepository {
	return &BunStateRepository{db: db, now: time.Now}
}

func (r *BunStateRepository) Get(ctx context.Context, siteID string) (*State, error) {
	state := new(State)
	err := r.db.NewSelect().
		Model(state).
		Where("?TableAlias.site_id = ?", siteID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapRepositoryError(err, siteID)
	}
	return state, nil
}

func (r *BunStateRepository) Save(ctx context.Context, state *State, expectedVersion int64) (*State, error) {
	if state == nil {
		return nil, nil
	}

	next := cloneState(state)
	next.Version = expectedVersion + 1
	next.UpdatedAt = r.now().UTC()
	if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var (
			res sql.Result
			err error
		)
		if expectedVersion == 0 {
			res, err = tx.NewInsert().
				Model(next).
				On("CONFLICT (site_id) DO NOTHING").
				Exec(ctx)
		} else {
			res, err = tx.NewUpdate().
				Model(next).
				Column(stateUpdateColumns...).
				Where("site_id = ?", next.SiteID).
				Where("version = ?", expectedVersion).
				Exec(ctx)
		}
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("rotation_state repository error: %w", err)
	}
	return next, nil
}

func (r *BunStateRepository) Delete(ctx context.Context, siteID string) error {
	res, err := r.db.NewDelete().
		Model((*State)(nil)).
		Where("site_id = ?", siteID).
		Exec(ctx)
	if err != nil {
		return mapRepositoryError(err, siteID)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return &NotFoundError{Resource: "rotation_state", Key: siteID}
	}
	return nil
}

func (r *BunStateRepository) TemplateUsage(ctx context.Context) (map[int]int, error) {
	var states []State
	if err := r.db.NewSelect().
		Model(&states).
		Column("site_id", "template_counts").
		Scan(ctx); err != nil {
		return nil, mapRepositoryError(err, "")
	}

	usage := make(map[int]int)
	for _, state := range states {
		for id, count := range state.TemplateCounts {
			usage[id] += count
		}
	}
	return usage, nil
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Resource: "rotation_state", Key: key}
	}
	return fmt.Errorf("rotation_state repository error: %w", err)
}
