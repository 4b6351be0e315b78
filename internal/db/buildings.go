package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vigilia-platform/iotcore/internal/errors"
)

// BuildingRepo resolves a building to its owning agency against the
// buildings table. That table is owned and migrated by the building/
// floor-plan system (spec Non-goals); this core only ever reads the one
// column it needs from it.
type BuildingRepo struct {
	pool *Pool
}

func NewBuildingRepo(pool *Pool) *BuildingRepo { return &BuildingRepo{pool: pool} }

// AgencyForBuilding satisfies provisioning.BuildingLookup and
// registration.BuildingLookup.
func (r *BuildingRepo) AgencyForBuilding(ctx context.Context, buildingID uuid.UUID) (uuid.UUID, error) {
	var agencyID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT agency_id FROM buildings WHERE id = $1`, buildingID).Scan(&agencyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.UUID{}, errors.New(errors.KindNotFound, "building not found")
		}
		return uuid.UUID{}, errors.Wrap(err, errors.KindInternal, "resolving building agency")
	}
	return agencyID, nil
}
