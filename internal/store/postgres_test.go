package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/taskflow-api/internal/testutil"
)

func TestPostgresStore(t *testing.T) {
	pool, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s := NewPostgresStore(pool)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		testutil.TruncateRecords(t, pool)
		ids := seed(t, s, "Work", "Home")
		assert.Equal(t, []int64{1, 2}, ids)

		r, err := s.GetRecordByID(ctx, EntityCategory, ids[1], Query{Fields: []string{"Name"}})
		require.NoError(t, err)
		assert.Equal(t, Record{IDField: ids[1], "Name": "Home"}, r)
	})

	t.Run("fetch ordered and paged", func(t *testing.T) {
		testutil.TruncateRecords(t, pool)
		seed(t, s, "Work", "Home", "Errands")

		records, err := s.FetchRecords(ctx, EntityCategory, Query{
			OrderBy: []Order{{Field: "Name"}},
			Paging:  Paging{Limit: 2},
		})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Errands", records[0]["Name"])
		assert.Equal(t, "Home", records[1]["Name"])

		records, err = s.FetchRecords(ctx, EntityCategory, Query{OrderBy: []Order{{Field: IDField, Desc: true}}})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "Errands", records[0]["Name"])
	})

	t.Run("entities are isolated", func(t *testing.T) {
		testutil.TruncateRecords(t, pool)
		seed(t, s, "Work")

		records, err := s.FetchRecords(ctx, EntityTask, Query{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("update merges", func(t *testing.T) {
		testutil.TruncateRecords(t, pool)
		ids := seed(t, s, "Work")

		resp, err := s.UpdateRecords(ctx, EntityCategory, []Record{{IDField: ids[0], "color_c": "red"}})
		require.NoError(t, err)
		require.True(t, resp.Results[0].Success)
		assert.Equal(t, "Work", resp.Results[0].Data["Name"])
		assert.Equal(t, "red", resp.Results[0].Data["color_c"])
	})

	t.Run("missing records", func(t *testing.T) {
		testutil.TruncateRecords(t, pool)
		seed(t, s, "Work")

		_, err := s.GetRecordByID(ctx, EntityCategory, 999, Query{})
		assert.ErrorIs(t, err, ErrRecordNotFound)

		resp, err := s.UpdateRecords(ctx, EntityCategory, []Record{{IDField: int64(999), "Name": "x"}})
		require.NoError(t, err)
		failed, ok := resp.Failed()
		require.True(t, ok)
		assert.True(t, failed.NotFound)

		resp, err = s.DeleteRecords(ctx, EntityCategory, []int64{999})
		require.NoError(t, err)
		_, ok = resp.Failed()
		assert.True(t, ok)

		records, err := s.FetchRecords(ctx, EntityCategory, Query{})
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("delete", func(t *testing.T) {
		testutil.TruncateRecords(t, pool)
		ids := seed(t, s, "Work")

		resp, err := s.DeleteRecords(ctx, EntityCategory, ids)
		require.NoError(t, err)
		_, failed := resp.Failed()
		assert.False(t, failed)

		_, err = s.GetRecordByID(ctx, EntityCategory, ids[0], Query{})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}
