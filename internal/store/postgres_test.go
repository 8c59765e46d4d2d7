package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paravec/internal/embeddings"
)

func TestVectorText(t *testing.T) {
	v := embeddings.Vector{0.25, -1, 3.5e-5}
	s := vectorToString(v)
	assert.Equal(t, "[0.25,-1,0.000035]", s)

	back, err := parseVector(s)
	require.NoError(t, err)
	assert.Equal(t, v, back)

	assert.Equal(t, "[]", vectorToString(nil))
	empty, err := parseVector("[]")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseVectorRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "0.1,0.2", "[0.1,x]", "[0.1"} {
		_, err := parseVector(in)
		assert.Error(t, err, in)
	}
}

func TestNewPostgresRejectsBadDimension(t *testing.T) {
	_, err := NewPostgres("postgres://unused", 0)
	assert.Error(t, err)
}

func TestNewPostgresClosesDBWhenMigrationFails(t *testing.T) {
	// Nothing listens on port 1, so the first query fails fast.
	db, err := sql.Open("pgx", "postgres://paravec@127.0.0.1:1/paravec?connect_timeout=1&sslmode=disable")
	require.NoError(t, err)

	_, err = newPostgresFromDB(db, 4)
	require.Error(t, err)
	assert.ErrorContains(t, db.Ping(), "database is closed")
}
