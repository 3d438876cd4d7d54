package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsOrdered(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "0001_scouting_core", migrations[0].Version)

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
}

func TestCoreSchemaConstraints(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	sql := migrations[0].SQL

	for _, fragment := range []string{
		"CONSTRAINT reports_code_key UNIQUE (code)",
		"CONSTRAINT scouts_approved_le_submitted CHECK (reports_approved <= reports_submitted)",
		"CONSTRAINT reports_reviewed_by_status CHECK ((status = 'submitted') = (reviewed_by IS NULL))",
		"CREATE TABLE IF NOT EXISTS report_code_sequences",
		"CREATE TABLE IF NOT EXISTS audit_logs",
		"PRIMARY KEY (key, scope)",
	} {
		assert.Contains(t, sql, fragment)
	}
}
