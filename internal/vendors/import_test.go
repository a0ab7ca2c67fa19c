package vendors

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/deliverycart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
)

func openImportDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Vendor{}))
	return db
}

func TestImportUpsertsVendors(t *testing.T) {
	db := openImportDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	src := `[
		{"id": 1, "name": "Tacos", "lat": 40.41, "lng": -3.70},
		{"id": 2, "name": "Pizza", "active": false}
	]`
	n, err := repo.Import(ctx, strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var rows []models.Vendor
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Active)
	assert.False(t, rows[1].Active)

	locs, err := repo.Locations(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, locs, 1)

	_, err = repo.Import(ctx, strings.NewReader(`[{"id": 1, "name": "Tacos Renamed", "lat": 40.41, "lng": -3.70}]`))
	require.NoError(t, err)
	var renamed models.Vendor
	require.NoError(t, db.First(&renamed, 1).Error)
	assert.Equal(t, "Tacos Renamed", renamed.Name)
}

func TestImportRejectsInvalidRecords(t *testing.T) {
	tests := map[string]string{
		"malformed":     `{"id": 1}`,
		"missing id":    `[{"name": "x"}]`,
		"bad latitude":  `[{"id": 3, "name": "x", "lat": 95, "lng": 0}]`,
		"half location": `[{"id": 3, "name": "x", "lat": 10}]`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			repo := NewRepository(openImportDB(t))
			_, err := repo.Import(context.Background(), strings.NewReader(src))
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}
