package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite:" + filepath.Join(t.TempDir(), "fulfillment.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedWarehouse(t *testing.T, db *gorm.DB, w WarehouseModel, stock map[string]int) {
	t.Helper()
	require.NoError(t, db.Create(&w).Error)
	loc := WarehouseLocationModel{ID: w.ID + "-loc", WarehouseID: w.ID, Code: "A1"}
	require.NoError(t, db.Create(&loc).Error)
	for variant, qty := range stock {
		require.NoError(t, db.Create(&InventoryLevelModel{LocationID: loc.ID, VariantID: variant, OnHand: qty}).Error)
	}
}
