package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type pagedRow struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Label     string    `gorm:"column:label"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (pagedRow) TableName() string { return "paged_rows" }

func rowKey(r pagedRow) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} }

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 1: 1, 5: 5, MaxLimit: MaxLimit, MaxLimit + 10: MaxLimit}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLimit(in), "limit %d", in)
	}
}

func TestCursorTokens(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.FixedZone("IST", 19800)), ID: uuid.New()}
	token := EncodeCursor(c)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")

	parsed, err := ParseCursor(token)
	require.NoError(t, err)
	assert.True(t, parsed.CreatedAt.Equal(c.CreatedAt))
	assert.Equal(t, c.ID, parsed.ID)

	blank, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, blank)

	for _, bad := range []string{"not-base64!", "bad", EncodeCursor(Cursor{})[:6]} {
		_, err := ParseCursor(bad)
		assert.ErrorIs(t, err, ErrMalformedCursor, bad)
	}
}

func TestTrimReportsNextCursor(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []pagedRow{
		{ID: uuid.New(), CreatedAt: base.Add(3 * time.Minute)},
		{ID: uuid.New(), CreatedAt: base.Add(2 * time.Minute)},
		{ID: uuid.New(), CreatedAt: base.Add(time.Minute)},
	}

	page, next := Trim(rows, 2, rowKey)
	require.Len(t, page, 2)
	parsed, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, rows[1].ID, parsed.ID)

	page, next = Trim(rows[:2], 2, rowKey)
	assert.Len(t, page, 2)
	assert.Empty(t, next)
}

func TestFindWalksEveryRowOnce(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.AutoMigrate(&pagedRow{}))

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	var seeded []pagedRow
	for i := range 5 {
		// two rows share a timestamp so the id tiebreak is exercised
		at := base.Add(time.Duration(i/2) * time.Minute)
		seeded = append(seeded, pagedRow{ID: uuid.New(), Label: "row", CreatedAt: at})
	}
	require.NoError(t, conn.Create(&seeded).Error)

	seen := map[uuid.UUID]bool{}
	params := Params{Limit: 2}
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "pagination did not terminate")
		rows, next, err := Find(conn.Model(&pagedRow{}), params, rowKey)
		require.NoError(t, err)
		for i, r := range rows {
			assert.False(t, seen[r.ID], "row %s returned twice", r.ID)
			seen[r.ID] = true
			if i > 0 {
				assert.False(t, r.CreatedAt.After(rows[i-1].CreatedAt), "rows must be newest first")
			}
		}
		if next == "" {
			break
		}
		params.Cursor = next
	}
	assert.Len(t, seen, len(seeded))
}

func TestFindEmptyAndInvalidCursor(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.AutoMigrate(&pagedRow{}))

	rows, next, err := Find(conn.Model(&pagedRow{}), Params{}, rowKey)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.Empty(t, next)

	_, _, err = Find(conn.Model(&pagedRow{}), Params{Cursor: "%%%"}, rowKey)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
