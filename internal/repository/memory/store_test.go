package memory

import (
	"context"
	"testing"
	"time"

	"VISO_Collective/internal/filter"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec, err := s.Create(ctx, model.TablePosts, model.Fields{"Title": "A", "Content": "B"})
	require.NoError(t, err)
	assert.Regexp(t, `^rec[0-9a-f]{14}$`, rec.ID)

	got, err := s.Find(ctx, model.TablePosts, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Fields.String("Title"))

	// 部分更新不影响其它字段
	got, err = s.Update(ctx, model.TablePosts, rec.ID, model.Fields{"Content": "C"})
	require.NoError(t, err)
	assert.Equal(t, "A", got.Fields.String("Title"))
	assert.Equal(t, "C", got.Fields.String("Content"))

	require.NoError(t, s.Destroy(ctx, model.TablePosts, rec.ID))
	_, err = s.Find(ctx, model.TablePosts, rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Destroy(ctx, model.TablePosts, rec.ID), store.ErrNotFound)
	_, err = s.Update(ctx, model.TablePosts, rec.ID, model.Fields{"Title": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	rec, err := s.Create(ctx, model.TablePosts, model.Fields{"Title": "A"})
	require.NoError(t, err)

	rec.Fields["Title"] = "mutated"
	got, err := s.Find(ctx, model.TablePosts, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Fields.String("Title"))
}

func TestStore_Select(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.SetClock(func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) })

	for _, d := range []string{"2026-05-03", "2026-04-01", "2026-05-01", "2026-05-02"} {
		s.Put(model.TableEvents, &model.Record{ID: "rec" + d, Fields: model.Fields{"Date": d}})
	}

	upcoming, err := store.Collect(s.Select(ctx, model.TableEvents, store.Query{
		Filter: filter.Cmp("Date", filter.OpGTE, filter.Today()),
		Sort:   []store.Sort{{Field: "Date", Direction: store.Asc}},
	}))
	require.NoError(t, err)
	require.Len(t, upcoming, 3)
	assert.Equal(t, "2026-05-01", upcoming[0].Fields.String("Date"))
	assert.Equal(t, "2026-05-03", upcoming[2].Fields.String("Date"))

	limited, err := store.Collect(s.Select(ctx, model.TableEvents, store.Query{
		Sort:       []store.Sort{{Field: "Date", Direction: store.Desc}},
		MaxRecords: 2,
	}))
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "2026-05-03", limited[0].Fields.String("Date"))
	assert.Equal(t, "2026-05-02", limited[1].Fields.String("Date"))
}

func TestStore_SelectCanceled(t *testing.T) {
	s := New()
	s.Put(model.TablePosts, &model.Record{ID: "rec1", Fields: model.Fields{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Collect(s.Select(ctx, model.TablePosts, store.Query{}))
	assert.ErrorIs(t, err, context.Canceled)
}
