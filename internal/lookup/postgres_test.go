package lookup

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTableName(t *testing.T) {
	for _, ok := range []string{"plates", "_p", "Plates2024"} {
		assert.NoError(t, ValidateTableName(ok), ok)
	}
	for _, bad := range []string{"", "1plates", "plates;drop", "a b", "public.plates"} {
		assert.Error(t, ValidateTableName(bad), bad)
	}
}

func TestNewPostgresStore_Validation(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), "", "")
	require.ErrorContains(t, err, "DSN")

	_, err = NewPostgresStore(context.Background(), "postgres://localhost/x", "bad name")
	require.ErrorContains(t, err, "invalid table name")
}

func TestPostgresStore_Queries(t *testing.T) {
	s := &PostgresStore{table: "vehicles"}
	assert.Equal(t, "SELECT make, model, year, owner FROM vehicles WHERE plate = $1", s.selectQuery())
	assert.Contains(t, s.schemaQuery(), "CREATE TABLE IF NOT EXISTS vehicles")
	assert.Contains(t, s.upsertQuery(), "ON CONFLICT (plate) DO UPDATE")
}

// TestPostgresStore_Integration needs a reachable database in PLATEFINDER_TEST_DSN.
func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("PLATEFINDER_TEST_DSN")
	if dsn == "" {
		t.Skip("PLATEFINDER_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn, "platefinder_test_plates")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.Import(ctx, sampleDB()))

	rec, err := s.Lookup(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Mary Smith", rec.Owner)

	_, err = s.Lookup(ctx, "NOPE00")
	require.ErrorIs(t, err, ErrNotFound)
}
