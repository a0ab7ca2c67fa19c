package vendors

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/deliverycart/internal/delivery"
	"github.com/angelmondragon/deliverycart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
)

// Repository reads vendor locations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Locations returns the known coordinates for the given vendors. Vendors that are
// unknown, inactive or without a valid location are absent from the map.
func (r *Repository) Locations(ctx context.Context, vendorIDs []int64) (map[int64]delivery.Coordinate, error) {
	out := make(map[int64]delivery.Coordinate, len(vendorIDs))
	if len(vendorIDs) == 0 {
		return out, nil
	}

	var rows []models.Vendor
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND active = ?", vendorIDs, true).
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor locations")
	}

	for _, row := range rows {
		if row.Latitude == nil || row.Longitude == nil {
			continue
		}
		coord := delivery.Coordinate{Lat: *row.Latitude, Lng: *row.Longitude}
		if !coord.Valid() {
			continue
		}
		out[row.ID] = coord
	}
	return out, nil
}

// Upsert creates or updates a vendor row.
func (r *Repository) Upsert(ctx context.Context, vendor *models.Vendor) error {
	if vendor == nil || vendor.ID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if err := r.db.WithContext(ctx).Save(vendor).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save vendor")
	}
	return nil
}
