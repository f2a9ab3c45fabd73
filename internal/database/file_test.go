package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDraws_SkipsMalformed(t *testing.T) {
	input := strings.Join([]string{
		"2024-01-01 12",
		"2024-01-02 4321",
		"",
		"garbage",
		"2024-13-01 1111",
		"2024-01-03 12a4",
		"2024-01-04 0007 extra",
		"2024-01-05 0007",
	}, "\n")

	draws, err := ParseDraws(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, draws, 2)
	assert.Equal(t, "2024-01-02 4321", draws[0].String())
	assert.Equal(t, "2024-01-05 0007", draws[1].String())
}

func TestParseDraws_SkipsDuplicateAndOutOfOrderDates(t *testing.T) {
	input := "2024-01-02 1111\n2024-01-02 2222\n2024-01-01 3333\n2024-01-03 4444\n"

	draws, err := ParseDraws(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, draws, 2)
	assert.Equal(t, "1111", draws[0].Number)
	assert.Equal(t, "4444", draws[1].Number)
}

func TestNewerDraws(t *testing.T) {
	existing := []DrawRecord{{Date: day("2024-01-02"), Number: "1111"}}
	incoming := []DrawRecord{
		{Date: day("2024-01-04"), Number: "4444"},
		{Date: day("2024-01-01"), Number: "0000"},
		{Date: day("2024-01-02"), Number: "2222"},
		{Date: day("2024-01-03"), Number: "3333"},
		{Date: day("2024-01-03"), Number: "9999"},
	}

	got := NewerDraws(existing, incoming)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-03 3333", got[0].String())
	assert.Equal(t, "2024-01-04 4444", got[1].String())

	assert.Len(t, NewerDraws(nil, incoming), 4)
	assert.Empty(t, NewerDraws(existing, nil))
}

func TestNewDrawRecord(t *testing.T) {
	rec, err := NewDrawRecord("2024-02-29", "0042")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", rec.DateString())

	_, err = NewDrawRecord("2024-02-30", "0042")
	assert.Error(t, err)
	_, err = NewDrawRecord("2024-02-01", "42")
	assert.Error(t, err)
}

func TestFileStore_DrawsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "data", "draws.txt"), dir)

	draws, err := store.LoadDraws()
	require.NoError(t, err)
	assert.Empty(t, draws)

	added, err := store.AppendDraws([]DrawRecord{
		{Date: day("2024-01-02"), Number: "2222"},
		{Date: day("2024-01-01"), Number: "1111"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = store.AppendDraws([]DrawRecord{
		{Date: day("2024-01-02"), Number: "9999"},
		{Date: day("2024-01-03"), Number: "3333"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	draws, err = store.LoadDraws()
	require.NoError(t, err)
	require.Len(t, draws, 3)
	assert.Equal(t, "1111", draws[0].Number)
	assert.Equal(t, "2222", draws[1].Number)
	assert.Equal(t, "3333", draws[2].Number)

	content, err := os.ReadFile(store.DrawsPath())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 1111\n2024-01-02 2222\n2024-01-03 3333\n", string(content))
}

func TestFileStore_BaseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "draws.txt"), dir)

	_, err := store.LoadBase("gap")
	assert.True(t, errors.Is(err, ErrBaseNotFound))

	base := Base{
		PositionPick("12345"),
		PositionPick("67890"),
		PositionPick("13579"),
		PositionPick("02468"),
	}
	require.NoError(t, store.SaveBase("gap", base))
	assert.FileExists(t, filepath.Join(dir, "base_gap.txt"))

	loaded, err := store.LoadBase("gap")
	require.NoError(t, err)
	assert.Equal(t, base, loaded)

	// 不同策略互不覆盖
	_, err = store.LoadBase("frequency")
	assert.ErrorIs(t, err, ErrBaseNotFound)

	other := base.Reversed()
	require.NoError(t, store.SaveBase("gap", other))
	loaded, err = store.LoadBase("gap")
	require.NoError(t, err)
	assert.Equal(t, other, loaded)
}

func TestParseBase(t *testing.T) {
	base, err := ParseBase("1 2 3 4 5\n6 7 8 9 0\nbad line\n1 3 5 7 9\n\n0 2 4 6 8\n")
	require.NoError(t, err)
	assert.Equal(t, "6 7 8 9 0", base[1].String())
	assert.Equal(t, []string{"1 2 3 4 5", "6 7 8 9 0", "1 3 5 7 9", "0 2 4 6 8"}, base.Lines())

	_, err = ParseBase("1 2 3\n4 5 6\n")
	assert.Error(t, err)

	_, err = ParseBase("1 2\n3 4\n5 6\n7 8\n9 0\n")
	assert.Error(t, err)
}

func TestParsePick(t *testing.T) {
	pick, err := ParsePick(" 1 2  3 ")
	require.NoError(t, err)
	assert.Equal(t, PositionPick("123"), pick)

	pick, err = ParsePick("1 1 2 1 3")
	require.NoError(t, err)
	assert.Equal(t, PositionPick("123"), pick)

	_, err = ParsePick("1 22 3")
	assert.Error(t, err)
	_, err = ParsePick("   ")
	assert.Error(t, err)
}

func TestBaseHelpers(t *testing.T) {
	base := Base{PositionPick("1"), PositionPick("2"), PositionPick("3"), PositionPick("4")}
	assert.Equal(t, Base{PositionPick("4"), PositionPick("3"), PositionPick("2"), PositionPick("1")}, base.Reversed())
	assert.Equal(t, "4321", ReverseNumber("1234"))

	assert.Equal(t, PositionPick("132"), PositionPick("13312").Distinct())

	data, err := PositionPick("135").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1 3 5"`, string(data))
}
