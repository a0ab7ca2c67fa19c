package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/deliverycart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
)

// ImportRecord is one entry of a vendor seed file.
type ImportRecord struct {
	ID        int64    `json:"id" validate:"required,gt=0"`
	Name      string   `json:"name" validate:"required,max=200"`
	Latitude  *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	Active    *bool    `json:"active"`
}

var importValidator = validator.New(validator.WithRequiredStructEnabled())

// Import reads a JSON array of vendors from r and upserts each one. Records missing
// "active" are stored as active. It stops at the first invalid record.
func (r *Repository) Import(ctx context.Context, src io.Reader) (int, error) {
	var records []ImportRecord
	if err := json.NewDecoder(src).Decode(&records); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode vendor file")
	}

	for i, rec := range records {
		if err := importValidator.Struct(rec); err != nil {
			return i, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("vendor record %d", i))
		}
		if (rec.Latitude == nil) != (rec.Longitude == nil) {
			return i, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("vendor record %d: lat and lng must be set together", i))
		}
		active := true
		if rec.Active != nil {
			active = *rec.Active
		}
		vendor := &models.Vendor{
			ID:        rec.ID,
			Name:      rec.Name,
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
			Active:    active,
		}
		if err := r.Upsert(ctx, vendor); err != nil {
			return i, err
		}
	}
	return len(records), nil
}
