package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add calc configs", "add_calc_configs"},
		{"Add-Commission-Overrides", "add_commission_overrides"},
		{"ADD_RULES_TABLE", "add_rules_table"},
		{"add__rules__table", "add_rules_table"},
		{"Add Rules 123", "add_rules_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"!! ??", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add calc configs", "Per-agency calculation settings")
	require.NoError(t, err)

	assert.Equal(t, "000001", mf.Version)
	assert.True(t, strings.HasSuffix(mf.UpPath, "000001_add_calc_configs.up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, "000001_add_calc_configs.down.sql"))

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "add_calc_configs")
	assert.Contains(t, string(upContent), "Per-agency calculation settings")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "Rollback")

	next, err := CreateMigration(dir, "add overrides", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", next.Version)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "???", "")
	assert.Error(t, err)
}

func TestNextVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000003_third.up.sql", "000003_third.down.sql",
		"000010_tenth.up.sql",
		"notes.up.sql",
		"000011_orphan.down.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	next, err := NextVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), next)
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory is empty", func(t *testing.T) {
		got, err := ListMigrations(filepath.Join(t.TempDir(), "missing"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("lists up migrations in order", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.up.sql"), 0o755))
		for _, name := range []string{"000002_b.up.sql", "000001_a.up.sql", "000001_a.down.sql"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}

		got, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_a", "000002_b"}, got)
	})
}
