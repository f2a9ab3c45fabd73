package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakcode4d/internal/database"
)

type countingRepo struct {
	draws   []database.DrawRecord
	bases   map[string]database.Base
	loads   int
	loadErr error
	closed  bool
}

func (r *countingRepo) LoadDraws() ([]database.DrawRecord, error) {
	r.loads++
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make([]database.DrawRecord, len(r.draws))
	copy(out, r.draws)
	return out, nil
}

func (r *countingRepo) AppendDraws(records []database.DrawRecord) (int, error) {
	fresh := database.NewerDraws(r.draws, records)
	r.draws = append(r.draws, fresh...)
	return len(fresh), nil
}

func (r *countingRepo) SaveBase(strategy string, base database.Base) error {
	if r.bases == nil {
		r.bases = map[string]database.Base{}
	}
	r.bases[strategy] = base
	return nil
}

func (r *countingRepo) LoadBase(strategy string) (database.Base, error) {
	base, ok := r.bases[strategy]
	if !ok {
		return database.Base{}, database.ErrBaseNotFound
	}
	return base, nil
}

func (r *countingRepo) Close() error {
	r.closed = true
	return nil
}

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDrawCache_HitsUntilExpiry(t *testing.T) {
	repo := &countingRepo{draws: []database.DrawRecord{{Date: day0, Number: "1234"}}}
	c := NewDrawCache(repo, time.Minute)
	now := day0
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		draws, err := c.LoadDraws()
		require.NoError(t, err)
		assert.Len(t, draws, 1)
	}
	assert.Equal(t, 1, repo.loads)

	now = now.Add(2 * time.Minute)
	_, err := c.LoadDraws()
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)

	stats := c.Stats()
	assert.Equal(t, int64(2), stats["hits"])
	assert.Equal(t, int64(2), stats["misses"])
}

func TestDrawCache_AppendInvalidates(t *testing.T) {
	repo := &countingRepo{draws: []database.DrawRecord{{Date: day0, Number: "1234"}}}
	c := NewDrawCache(repo, time.Hour)

	_, err := c.LoadDraws()
	require.NoError(t, err)

	added, err := c.AppendDraws([]database.DrawRecord{{Date: day0, Number: "9999"}})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	_, err = c.LoadDraws()
	require.NoError(t, err)
	assert.Equal(t, 1, repo.loads, "nothing appended, cache stays valid")

	added, err = c.AppendDraws([]database.DrawRecord{{Date: day0.AddDate(0, 0, 1), Number: "5678"}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	draws, err := c.LoadDraws()
	require.NoError(t, err)
	assert.Len(t, draws, 2)
	assert.Equal(t, 2, repo.loads)
}

func TestDrawCache_ReturnsCopies(t *testing.T) {
	repo := &countingRepo{draws: []database.DrawRecord{{Date: day0, Number: "1234"}}}
	c := NewDrawCache(repo, time.Hour)

	first, err := c.LoadDraws()
	require.NoError(t, err)
	first[0].Number = "0000"

	second, err := c.LoadDraws()
	require.NoError(t, err)
	assert.Equal(t, "1234", second[0].Number)
}

func TestDrawCache_Disabled(t *testing.T) {
	repo := &countingRepo{}
	c := NewDrawCache(repo, -1)

	for i := 0; i < 3; i++ {
		_, err := c.LoadDraws()
		require.NoError(t, err)
	}
	assert.Equal(t, 3, repo.loads)
}

func TestDrawCache_ErrorsAreNotCached(t *testing.T) {
	repo := &countingRepo{loadErr: errors.New("disk gone")}
	c := NewDrawCache(repo, time.Hour)

	_, err := c.LoadDraws()
	assert.Error(t, err)

	repo.loadErr = nil
	_, err = c.LoadDraws()
	assert.NoError(t, err)
	assert.Equal(t, 2, repo.loads)
}

func TestDrawCache_BasesPassThrough(t *testing.T) {
	repo := &countingRepo{}
	c := NewDrawCache(repo, time.Hour)

	base := database.Base{database.PositionPick("12345")}
	require.NoError(t, c.SaveBase("gap", base))
	loaded, err := c.LoadBase("gap")
	require.NoError(t, err)
	assert.Equal(t, base, loaded)

	_, err = c.LoadBase("hybrid")
	assert.ErrorIs(t, err, database.ErrBaseNotFound)

	require.NoError(t, c.Close())
	assert.True(t, repo.closed)
}
