package database

import (
	"database/sql"
	"testing"

	"lobby-tracker/feature/tracker/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMockGorm(t *testing.T, conn *sql.DB) *gorm.DB {
	dialector := mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}
	return db
}

func TestVerifyTables_SQLite(t *testing.T) {
	cfg := Config{
		Driver: "sqlite",
		Name:   ":memory:",
	}
	db, err := Connect(cfg)
	require.NoError(t, err)

	// Nothing migrated yet: everything is missing.
	missing, err := VerifyTables(db, models.TrackerTables())
	assert.NoError(t, err)
	assert.Len(t, missing, len(models.TrackerTables()))
	assert.Contains(t, missing, "game_lobbies")
	assert.Contains(t, missing, "feed_positions")

	// Migrate and verify again.
	require.NoError(t, db.AutoMigrate(models.TrackerTables()...))
	missing, err = VerifyTables(db, models.TrackerTables())
	assert.NoError(t, err)
	assert.Empty(t, missing)
}

func TestVerifyTables_MySQLQueries(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := openMockGorm(t, sqlDB)

	// HasTable on MySQL resolves the current schema first, then probes
	// information_schema.
	mock.ExpectQuery("SELECT DATABASE\\(\\)").
		WillReturnRows(sqlmock.NewRows([]string{"DATABASE()"}).AddRow("lobbytrack"))
	rows := sqlmock.NewRows([]string{"count(*)"}).AddRow(1)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM information_schema.tables").WillReturnRows(rows)

	missing, err := VerifyTables(db, []any{&models.Region{}})
	assert.NoError(t, err)
	assert.Empty(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}
