package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestDisplayPreferencesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_display_preferences.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no display preferences migration found")

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS display_preferences",
		"PRIMARY KEY (user_id, quotation_id)",
		"CHECK (display_mode IN ('bifurcated', 'lumpsum'))",
		"DROP TABLE IF EXISTS display_preferences",
	} {
		assert.True(t, strings.Contains(content, sub), "missing %q", sub)
	}
}

func TestRunAppliesMigrationsOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Run(context.Background(), sqlDB, Dialect("sqlite"), "migrations", "up"))
	assert.True(t, conn.Migrator().HasTable("display_preferences"))

	require.NoError(t, Run(context.Background(), sqlDB, Dialect("sqlite"), "migrations", "down"))
	assert.False(t, conn.Migrator().HasTable("display_preferences"))
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", Dialect("SQLite"))
	assert.Equal(t, "postgres", Dialect("postgres"))
	assert.Equal(t, "postgres", Dialect(""))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Approval Audit!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_approval_audit.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}
