package gateway

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"VISO_Collective/internal/filter"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/repository/memory"
	"VISO_Collective/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore 记录每次存储调用
type countingStore struct {
	store.Store
	mu    sync.Mutex
	calls []string
	// afterFind 在 Find 返回后执行，用来模拟并发修改
	afterFind func()
}

func (c *countingStore) record(op string) {
	c.mu.Lock()
	c.calls = append(c.calls, op)
	c.mu.Unlock()
}

func (c *countingStore) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *countingStore) Reset() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}

func (c *countingStore) Find(ctx context.Context, t model.Table, id string) (*model.Record, error) {
	c.record("find")
	rec, err := c.Store.Find(ctx, t, id)
	if c.afterFind != nil {
		c.afterFind()
	}
	return rec, err
}

func (c *countingStore) Create(ctx context.Context, t model.Table, f model.Fields) (*model.Record, error) {
	c.record("create")
	return c.Store.Create(ctx, t, f)
}

func (c *countingStore) Update(ctx context.Context, t model.Table, id string, f model.Fields) (*model.Record, error) {
	c.record("update")
	return c.Store.Update(ctx, t, id, f)
}

func (c *countingStore) Destroy(ctx context.Context, t model.Table, id string) error {
	c.record("destroy")
	return c.Store.Destroy(ctx, t, id)
}

func (c *countingStore) Select(ctx context.Context, t model.Table, q store.Query) iter.Seq2[*model.Record, error] {
	c.record("select")
	return c.Store.Select(ctx, t, q)
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Find(context.Context, model.Table, string) (*model.Record, error) {
	return nil, f.err
}

func (f failingStore) Create(context.Context, model.Table, model.Fields) (*model.Record, error) {
	return nil, f.err
}

func (f failingStore) Select(context.Context, model.Table, store.Query) iter.Seq2[*model.Record, error] {
	return func(yield func(*model.Record, error) bool) { yield(nil, f.err) }
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.RecordEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.RecordEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

var (
	u1   = model.Caller{ID: "u1", Name: "User One"}
	u2   = model.Caller{ID: "u2", Name: "User Two"}
	anon = model.Caller{}
)

func newGateway(t *testing.T) (*Gateway, *countingStore, *memory.Store) {
	t.Helper()
	mem := memory.New()
	cs := &countingStore{Store: mem}
	return New(cs), cs, mem
}

func seed(t *testing.T, g *Gateway, caller model.Caller, fields model.Fields) *model.Record {
	t.Helper()
	rec, err := g.Create(context.Background(), model.TablePosts, fields, caller)
	require.NoError(t, err)
	return rec
}

func TestCreate_StampsCreator(t *testing.T) {
	g, cs, _ := newGateway(t)

	rec, err := g.Create(context.Background(), model.TablePosts, model.Fields{
		"Title":     "A",
		"CreatorId": "someone-else",
		"Creator":   "Mallory",
	}, u1)
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.Fields.String(model.FieldCreatorID))
	assert.Equal(t, "User One", rec.Fields.String(model.FieldCreator))
	assert.Equal(t, "A", rec.Fields.String("Title"))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, []string{"create"}, cs.Calls())
}

func TestCreate_UnnamedCaller(t *testing.T) {
	g, _, _ := newGateway(t)

	rec, err := g.Create(context.Background(), model.TablePosts, model.Fields{}, model.Caller{ID: "u9"})
	require.NoError(t, err)
	assert.Equal(t, model.UnknownCreator, rec.Fields.String(model.FieldCreator))
}

func TestCreate_DoesNotMutateInput(t *testing.T) {
	g, _, _ := newGateway(t)
	in := model.Fields{"Title": "A"}

	_, err := g.Create(context.Background(), model.TablePosts, in, u1)
	require.NoError(t, err)
	assert.NotContains(t, in, model.FieldCreatorID)
}

func TestCreate_NotIdempotent(t *testing.T) {
	g, _, _ := newGateway(t)
	a := seed(t, g, u1, model.Fields{"Title": "A"})
	b := seed(t, g, u1, model.Fields{"Title": "A"})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUnauthenticated_NoStoreCalls(t *testing.T) {
	g, cs, _ := newGateway(t)
	ctx := context.Background()

	_, err := g.Create(ctx, model.TablePosts, model.Fields{"Title": "A"}, anon)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, err = g.Update(ctx, model.TablePosts, "rec1", model.Fields{"Title": "B"}, anon)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	err = g.Delete(ctx, model.TablePosts, "rec1", anon)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	seq, err := g.ListOwned(ctx, model.TablePosts, anon, store.Query{})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	assert.Nil(t, seq)

	assert.Empty(t, cs.Calls())
}

func TestUpdate_NonOwnerDenied(t *testing.T) {
	g, cs, mem := newGateway(t)
	rec := seed(t, g, u1, model.Fields{"Title": "A"})
	cs.Reset()

	_, err := g.Update(context.Background(), model.TablePosts, rec.ID, model.Fields{"Title": "B"}, u2)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	assert.Equal(t, []string{"find"}, cs.Calls())

	got, err := mem.Find(context.Background(), model.TablePosts, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Fields.String("Title"))
}

func TestUpdate_CaseSensitive(t *testing.T) {
	g, _, _ := newGateway(t)
	rec := seed(t, g, u1, model.Fields{"Title": "A"})

	_, err := g.Update(context.Background(), model.TablePosts, rec.ID, model.Fields{"Title": "B"}, model.Caller{ID: "U1"})
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestUpdate_UnownedRecordDenied(t *testing.T) {
	g, cs, mem := newGateway(t)
	mem.Put(model.TablePosts, &model.Record{ID: "recLegacy", Fields: model.Fields{"Title": "old", "AuthorId": "u1"}})
	mem.Put(model.TablePosts, &model.Record{ID: "recBlank", Fields: model.Fields{"CreatorId": ""}})

	_, err := g.Update(context.Background(), model.TablePosts, "recLegacy", model.Fields{"Title": "B"}, u1)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	err = g.Delete(context.Background(), model.TablePosts, "recBlank", u1)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	assert.Equal(t, []string{"find", "find"}, cs.Calls())
}

func TestUpdate_NotFound(t *testing.T) {
	g, cs, _ := newGateway(t)

	_, err := g.Update(context.Background(), model.TablePosts, "recMissing", model.Fields{"Title": "B"}, u1)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, []string{"find"}, cs.Calls())
}

func TestUpdate_OwnerPartial(t *testing.T) {
	g, cs, _ := newGateway(t)
	rec := seed(t, g, u1, model.Fields{"Title": "A", "Content": "B", "Category": "Post"})
	cs.Reset()

	got, err := g.Update(context.Background(), model.TablePosts, rec.ID, model.Fields{"Content": "C"}, u1)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Fields.String("Title"))
	assert.Equal(t, "C", got.Fields.String("Content"))
	assert.Equal(t, "Post", got.Fields.String("Category"))
	assert.Equal(t, []string{"find", "update"}, cs.Calls())
}

func TestUpdate_DropsCreatorMarkers(t *testing.T) {
	g, cs, _ := newGateway(t)
	rec := seed(t, g, u1, model.Fields{"Title": "A"})
	cs.Reset()

	got, err := g.Update(context.Background(), model.TablePosts, rec.ID, model.Fields{
		"Title":     "B",
		"CreatorId": "u2",
		"Creator":   "User Two",
	}, u1)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Fields.String("Title"))
	assert.Equal(t, "u1", got.Fields.String(model.FieldCreatorID))
	assert.Equal(t, "User One", got.Fields.String(model.FieldCreator))
}

func TestUpdate_OnlyMarkersSkipsWrite(t *testing.T) {
	g, cs, _ := newGateway(t)
	rec := seed(t, g, u1, model.Fields{"Title": "A"})
	cs.Reset()

	got, err := g.Update(context.Background(), model.TablePosts, rec.ID, model.Fields{"CreatorId": "u2"}, u1)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "u1", got.Fields.String(model.FieldCreatorID))
	assert.Equal(t, []string{"find"}, cs.Calls())
}

func TestDelete(t *testing.T) {
	g, cs, mem := newGateway(t)
	rec := seed(t, g, u1, model.Fields{"Title": "A"})
	cs.Reset()

	err := g.Delete(context.Background(), model.TablePosts, rec.ID, u2)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	assert.Equal(t, []string{"find"}, cs.Calls())

	cs.Reset()
	require.NoError(t, g.Delete(context.Background(), model.TablePosts, rec.ID, u1))
	assert.Equal(t, []string{"find", "destroy"}, cs.Calls())

	_, err = mem.Find(context.Background(), model.TablePosts, rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = g.Delete(context.Background(), model.TablePosts, rec.ID, u1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListOwned(t *testing.T) {
	g, _, _ := newGateway(t)
	ctx := context.Background()
	seed(t, g, u1, model.Fields{"Title": "a", "Category": "Post"})
	seed(t, g, u1, model.Fields{"Title": "b", "Category": "Question"})
	seed(t, g, u2, model.Fields{"Title": "c", "Category": "Post"})

	seq, err := g.ListOwned(ctx, model.TablePosts, u1, store.Query{})
	require.NoError(t, err)
	all, err := store.Collect(seq)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, titles(all))

	seq, err = g.ListOwned(ctx, model.TablePosts, u1, store.Query{Filter: filter.Eq("Category", "Post")})
	require.NoError(t, err)
	posts, err := store.Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(posts))

	seq, err = g.ListOwned(ctx, model.TablePosts, u2, store.Query{Filter: filter.Eq("Category", "Question")})
	require.NoError(t, err)
	none, err := store.Collect(seq)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListOwned_ComposesFilter(t *testing.T) {
	var seen store.Query
	g := New(queryCapture{fn: func(q store.Query) { seen = q }})

	seq, err := g.ListOwned(context.Background(), model.TablePosts, u1, store.Query{
		Filter:     filter.Eq("Category", "Post"),
		Sort:       []store.Sort{{Field: "CreatedAt", Direction: store.Desc}},
		MaxRecords: 5,
	})
	require.NoError(t, err)
	_, err = store.Collect(seq)
	require.NoError(t, err)

	f, err := filter.Formula(seen.Filter)
	require.NoError(t, err)
	assert.Equal(t, "AND({Category} = 'Post', {CreatorId} = 'u1')", f)
	assert.Equal(t, 5, seen.MaxRecords)
	assert.Equal(t, []store.Sort{{Field: "CreatedAt", Direction: store.Desc}}, seen.Sort)
}

type queryCapture struct {
	store.Store
	fn func(store.Query)
}

func (q queryCapture) Select(_ context.Context, _ model.Table, query store.Query) iter.Seq2[*model.Record, error] {
	q.fn(query)
	return func(func(*model.Record, error) bool) {}
}

func TestUpstreamFailure(t *testing.T) {
	boom := errors.New("connection reset")
	g := New(failingStore{err: boom})
	ctx := context.Background()

	_, err := g.Update(ctx, model.TablePosts, "rec1", model.Fields{"Title": "x"}, u1)
	assert.ErrorIs(t, err, model.ErrUpstream)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrNotFound)

	_, err = g.Create(ctx, model.TablePosts, model.Fields{}, u1)
	assert.ErrorIs(t, err, model.ErrUpstream)

	_, err = g.Get(ctx, model.TablePosts, "rec1")
	assert.ErrorIs(t, err, model.ErrUpstream)

	_, err = store.Collect(g.List(ctx, model.TablePosts, store.Query{}))
	assert.ErrorIs(t, err, model.ErrUpstream)
}

func TestGet(t *testing.T) {
	g, _, _ := newGateway(t)
	rec := seed(t, g, u1, model.Fields{"Title": "A"})

	got, err := g.Get(context.Background(), model.TablePosts, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Fields.String("Title"))

	_, err = g.Get(context.Background(), model.TablePosts, "recNope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := New(memory.New(), WithPublisher(pub), WithClock(func() time.Time { return at }))
	ctx := context.Background()

	rec, err := g.Create(ctx, model.TablePosts, model.Fields{"Title": "A"}, u1)
	require.NoError(t, err)
	_, err = g.Update(ctx, model.TablePosts, rec.ID, model.Fields{"Title": "B"}, u1)
	require.NoError(t, err)
	_, err = g.Update(ctx, model.TablePosts, rec.ID, model.Fields{"Title": "C"}, u2)
	require.Error(t, err)
	require.NoError(t, g.Delete(ctx, model.TablePosts, rec.ID, u1))

	require.Len(t, pub.events, 3)
	assert.Equal(t, model.RecordCreated, pub.events[0].Type)
	assert.Equal(t, model.RecordUpdated, pub.events[1].Type)
	assert.Equal(t, model.Fields{"Title": "B"}, pub.events[1].Fields)
	assert.Equal(t, model.RecordDeleted, pub.events[2].Type)
	for _, ev := range pub.events {
		assert.Equal(t, rec.ID, ev.RecordID)
		assert.Equal(t, "u1", ev.ActorID)
		assert.Equal(t, model.TablePosts, ev.Table)
		assert.Equal(t, at, ev.At)
	}
}

func TestPublisherFailureIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	g := New(memory.New(), WithPublisher(pub))

	rec, err := g.Create(context.Background(), model.TablePosts, model.Fields{"Title": "A"}, u1)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Len(t, pub.events, 1)
}

func TestEndToEnd(t *testing.T) {
	g, _, _ := newGateway(t)
	ctx := context.Background()

	rec, err := g.Create(ctx, model.TablePosts, model.Fields{"Title": "A", "Content": "B", "Category": "Post"}, model.Caller{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.Fields.String(model.FieldCreatorID))

	_, err = g.Update(ctx, model.TablePosts, rec.ID, model.Fields{"Content": "C"}, model.Caller{ID: "u2"})
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	got, err := g.Update(ctx, model.TablePosts, rec.ID, model.Fields{"Content": "C"}, model.Caller{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "C", got.Fields.String("Content"))
	assert.Equal(t, "A", got.Fields.String("Title"))
}

// 读取-校验-写入不是原子的：校验通过后创建者被改掉，写入仍然发生
func TestUpdate_CheckThenWriteIsNotAtomic(t *testing.T) {
	g, cs, mem := newGateway(t)
	rec := seed(t, g, u1, model.Fields{"Title": "A"})

	cs.afterFind = func() {
		_, err := mem.Update(context.Background(), model.TablePosts, rec.ID, model.Fields{model.FieldCreatorID: "u2"})
		require.NoError(t, err)
	}

	got, err := g.Update(context.Background(), model.TablePosts, rec.ID, model.Fields{"Title": "B"}, u1)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Fields.String("Title"))
	assert.Equal(t, "u2", got.Fields.String(model.FieldCreatorID))
}

func titles(recs []*model.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Fields.String("Title"))
	}
	return out
}
