package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareMigrations(t *testing.T) {
	for _, tc := range []struct {
		name     string
		wanted   []string
		existing []string
		exp      []string
		expErr   bool
	}{
		{name: "fresh database", wanted: []string{"a", "b"}, existing: []string{}, exp: []string{"a", "b"}},
		{name: "up to date", wanted: []string{"a", "b"}, existing: []string{"a", "b"}, exp: []string{}},
		{name: "one behind", wanted: []string{"a", "b"}, existing: []string{"a"}, exp: []string{"b"}},
		{name: "database ahead", wanted: []string{"a"}, existing: []string{"a", "b"}, expErr: true},
		{name: "diverged", wanted: []string{"a", "c"}, existing: []string{"a", "b"}, expErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			act, err := compareMigrations(tc.wanted, tc.existing)
			if tc.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, act)
		})
	}
}

func TestMigrationsAreAppendOnly(t *testing.T) {
	// the first migration creates the table every later one depends on
	require.NotEmpty(t, pgMigration)
	assert.Contains(t, pgMigration[0], "CREATE TABLE submission")
}

func TestNewPostgresHonorsCanceledContext(t *testing.T) {
	// nothing listens here; a canceled context must fail before dialing
	db, err := sql.Open("postgres", "postgres://uploadwatch@127.0.0.1:1/uploadwatch?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewPostgres(ctx, db)
	assert.ErrorIs(t, err, context.Canceled)
}
