package predictor

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakcode4d/internal/database"
)

func smallBase() database.Base {
	return database.Base{
		database.PositionPick("12"),
		database.PositionPick("34"),
		database.PositionPick("56"),
		database.PositionPick("78"),
	}
}

func TestProductSize(t *testing.T) {
	assert.Equal(t, 16, ProductSize(smallBase()))
	assert.Equal(t, 0, ProductSize(database.Base{}))
}

func TestDeterministic_Order(t *testing.T) {
	got := Deterministic(smallBase(), 4)
	assert.Equal(t, []string{"1357", "1358", "1367", "1368"}, got)
}

func TestDeterministic_Repeatable(t *testing.T) {
	assert.Equal(t, Deterministic(smallBase(), 10), Deterministic(smallBase(), 10))
}

func TestDeterministic_Bounds(t *testing.T) {
	assert.Nil(t, Deterministic(smallBase(), 0))
	assert.Nil(t, Deterministic(smallBase(), -1))
	assert.Nil(t, Deterministic(database.Base{}, 5))

	all := Deterministic(smallBase(), 100)
	assert.Len(t, all, 16)
	assert.Equal(t, "2468", all[len(all)-1])
}

func assertFromBase(t *testing.T, base database.Base, number string) {
	t.Helper()
	require.Len(t, number, database.Positions)
	for p := 0; p < database.Positions; p++ {
		assert.True(t, base[p].Contains(number[p]), "%s: position %d not in base", number, p)
	}
}

func TestSampled_MembersUniqueSorted(t *testing.T) {
	base := smallBase()
	got := Sampled(base, 6, rand.New(rand.NewSource(9)))

	require.Len(t, got, 6)
	assert.True(t, sort.StringsAreSorted(got))

	seen := map[string]bool{}
	for _, n := range got {
		assertFromBase(t, base, n)
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
}

func TestSampled_ClampsToProductSize(t *testing.T) {
	got := Sampled(smallBase(), 1000, rand.New(rand.NewSource(1)))
	assert.Len(t, got, 16)
	assert.Equal(t, Deterministic(smallBase(), 16), got)
}

func TestSampled_ZeroCount(t *testing.T) {
	assert.Nil(t, Sampled(smallBase(), 0, rand.New(rand.NewSource(1))))
}

func TestGenerator_SamplePredictions(t *testing.T) {
	a := NewGenerator(rand.NewSource(5)).SamplePredictions(smallBase(), 5)
	b := NewGenerator(rand.NewSource(5)).SamplePredictions(smallBase(), 5)
	assert.Equal(t, a, b)
	assert.Len(t, a, 5)
}

func TestSampled_RepeatedDigitsInPick(t *testing.T) {
	base, err := database.ParseBase("1 1 1 1 1\n2 3\n4\n5\n")
	require.NoError(t, err)
	assert.Equal(t, 2, ProductSize(base))

	got := Sampled(base, 3, rand.New(rand.NewSource(1)))
	assert.Equal(t, []string{"1245", "1345"}, got)

	raw := database.Base{
		database.PositionPick("11111"),
		database.PositionPick("23"),
		database.PositionPick("4"),
		database.PositionPick("5"),
	}
	assert.Equal(t, 2, ProductSize(raw))
	assert.Equal(t, []string{"1245", "1345"}, Sampled(raw, 10, rand.New(rand.NewSource(2))))
	assert.Equal(t, []string{"1245", "1345"}, Deterministic(raw, 10))
}
