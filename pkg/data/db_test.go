package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := Init(filepath.Join(t.TempDir(), DataFileName))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), DataFileName)
	s, err := Init(path)
	require.NoError(t, err)
	require.NotNil(t, s.DB())

	// force the lazy connection so the file exists
	require.NoError(t, s.DB().Ping())
	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestInit_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), DataFileName)

	s1, err := Init(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Init(path)
	require.NoError(t, err)
	assert.NoError(t, s2.Close())
}

func TestInit_EmptyDSN(t *testing.T) {
	_, err := Init("")
	assert.Error(t, err)
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, driverPostgres, driverFor("postgres://u:p@localhost/visor"))
	assert.Equal(t, driverPostgres, driverFor("postgresql://u:p@localhost/visor"))
	assert.Equal(t, driverSqlite, driverFor("/tmp/visor.db"))
	assert.Equal(t, driverSqlite, driverFor("file::memory:"))
}

func TestBind(t *testing.T) {
	q := "INSERT INTO t VALUES (?, ?, ?)"

	s := &Store{driver: driverSqlite}
	assert.Equal(t, q, s.bind(q))

	s = &Store{driver: driverPostgres}
	assert.Equal(t, "INSERT INTO t VALUES ($1, $2, $3)", s.bind(q))
}
