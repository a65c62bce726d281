package snapshot_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/savestate/internal/core/events/bus"
	"github.com/zeusync/savestate/internal/core/models"
	"github.com/zeusync/savestate/internal/core/snapshot"
	"github.com/zeusync/savestate/internal/demo"
	"github.com/zeusync/savestate/pkg/encoding"
)

type counts struct {
	Units, Players, Enemies           int
	Unit, Weapon, Offhand, Item, Buff int
}

func countParty(w *models.World) counts {
	return counts{
		Units:   models.Count[demo.Units](w),
		Players: models.Count[demo.Players](w),
		Enemies: models.Count[demo.Enemies](w),
		Unit:    models.Count[demo.Unit](w),
		Weapon:  models.Count[demo.Weapon](w),
		Offhand: models.Count[demo.Offhand](w),
		Item:    models.Count[demo.Item](w),
		Buff:    models.Count[demo.Buff](w),
	}
}

func newParty(t *testing.T, profile snapshot.Profile, opts ...snapshot.Option) (*models.World, *snapshot.Engine, demo.Party) {
	t.Helper()
	w := models.NewWorld()
	catalog := demo.NewCatalog()
	e := snapshot.NewEngine(w, profile, opts...)
	require.NoError(t, demo.Register(e, catalog))
	party, err := demo.Populate(w, catalog)
	require.NoError(t, err)
	return w, e, party
}

func unitNamed(t *testing.T, w *models.World, name string) models.EntityID {
	t.Helper()
	for _, id := range models.Query[demo.Unit](w) {
		if u, _ := models.Get[demo.Unit](w, id); u.Name == name {
			return id
		}
	}
	t.Fatalf("no unit named %s", name)
	return 0
}

func TestReloadMergesByPath(t *testing.T) {
	for _, codec := range []encoding.Codec{encoding.JSONCodec{Pretty: true}, encoding.YAMLCodec{}, encoding.GobCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			ctx := context.Background()
			w, e, party := newParty(t, snapshot.All(codec))

			buffer, err := e.SaveBytes(ctx)
			require.NoError(t, err)

			removed, err := e.RemoveRegistered(ctx)
			require.NoError(t, err)
			// 20 party components, Status, Focus and the Campaign resource.
			assert.Equal(t, 23, removed)
			assert.Equal(t, counts{Units: 1, Players: 1, Enemies: 1}, countParty(w))
			_, ok := models.GetResource[demo.Campaign](w)
			assert.False(t, ok)

			res, err := e.LoadBytes(ctx, buffer)
			require.NoError(t, err)
			assert.Empty(t, res.Reported)
			assert.Equal(t, counts{1, 1, 1, 2, 2, 1, 9, 6}, countParty(w))
			assert.Equal(t, 9, res.Applied["Item"])

			campaign, ok := models.GetResource[demo.Campaign](w)
			require.True(t, ok)
			assert.Equal(t, demo.Campaign{Turn: 1, Difficulty: "normal"}, campaign)

			john := unitNamed(t, w, "John")
			jane := unitNamed(t, w, "Jane")
			parent, ok := w.Parent(john)
			require.True(t, ok)
			assert.Equal(t, party.Players, parent)
			focus, ok := models.Get[demo.Focus](w, jane)
			require.True(t, ok)
			assert.Equal(t, john, focus.Target)
			status, ok := models.Get[demo.Status](w, john)
			require.True(t, ok)
			assert.NotZero(t, status.Flags)

			// Named entities are updated in place, unnamed ones are added again.
			_, err = e.LoadBytes(ctx, buffer)
			require.NoError(t, err)
			assert.Equal(t, counts{1, 1, 1, 2, 2, 1, (9-3)*2 + 3, 6 * 2}, countParty(w))
			assert.Equal(t, john, unitNamed(t, w, "John"))

			// Renaming the groups moves every saved path to fresh entities.
			require.NoError(t, models.Insert(w, party.Players, snapshot.PathName("OriginalPlayers")))
			require.NoError(t, models.Insert(w, party.Enemies, snapshot.PathName("Players")))
			_, err = e.LoadBytes(ctx, buffer)
			require.NoError(t, err)
			assert.Equal(t, counts{1, 1, 1, 4, 4, 2, 15 + 9, 6*2 + 6}, countParty(w))

			for _, id := range models.Query[demo.Unit](w) {
				parent, ok := w.Parent(id)
				require.True(t, ok)
				assert.Contains(t, []models.EntityID{party.Players, party.Enemies}, parent)
			}
		})
	}
}

func TestLoadRestoresNamedValues(t *testing.T) {
	ctx := context.Background()
	w, e, party := newParty(t, snapshot.All(encoding.JSONCodec{}))

	data, err := e.SaveString(ctx)
	require.NoError(t, err)
	assert.Contains(t, data, `"path":"Players::John"`)

	require.NoError(t, models.Insert(w, party.John, demo.Unit{Name: "John", HP: 1}))
	_, err = e.LoadBytes(ctx, []byte(data))
	require.NoError(t, err)

	u, ok := models.Get[demo.Unit](w, party.John)
	require.True(t, ok)
	assert.Equal(t, int32(32), u.HP)
	assert.Equal(t, 2, models.Count[demo.Unit](w))
}

func TestSaveDocumentShape(t *testing.T) {
	ctx := context.Background()
	_, e, party := newParty(t, snapshot.All(encoding.JSONCodec{}))

	res, err := e.Save(ctx, snapshot.Sinks{Bytes: true})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Op)
	assert.Equal(t, encoding.Digest(res.Bytes), res.Digest)
	assert.Equal(t, []string{"Buff", "Campaign", "Focus", "Item", "Offhand", "Status", "Unit", "Weapon"}, res.Document.TypeNames())

	units := res.Document["Unit"]
	require.Len(t, units, 2)
	assert.Equal(t, encoding.NamedParent("Players"), units[0].Parent)
	assert.Equal(t, encoding.NamedPath("Players::John"), units[0].Path)

	buffs := res.Document["Buff"]
	require.Len(t, buffs, 6)
	assert.Equal(t, encoding.NamedParent("Players::John::mainhand"), buffs[0].Parent)
	assert.Equal(t, encoding.ParentEntity, buffs[3].Parent.Kind, "the ring is unnamed")
	assert.Equal(t, encoding.PathEntity, buffs[0].Path.Kind)

	campaign := res.Document["Campaign"]
	require.Len(t, campaign, 1)
	assert.True(t, campaign[0].Parent.IsRoot())
	assert.True(t, campaign[0].Path.IsUnique())

	assert.NotZero(t, party.Units)
}

func TestSinksAreIndependent(t *testing.T) {
	ctx := context.Background()
	_, e, _ := newParty(t, snapshot.All(encoding.GobCodec{}))
	file := filepath.Join(t.TempDir(), "party.bin")

	res, err := e.Save(ctx, snapshot.Sinks{File: file, Bytes: true, String: true})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Bytes)
	assert.NoError(t, res.Sinks.File)
	assert.NoError(t, res.Sinks.Bytes)
	assert.ErrorIs(t, res.Sinks.String, encoding.ErrUnsupportedFormat)
	assert.Len(t, res.Reported, 1)

	_, err = e.SaveString(ctx)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedFormat)
	assert.False(t, snapshot.IsFatal(err))

	w := models.NewWorld()
	other := snapshot.NewEngine(w, snapshot.All(encoding.GobCodec{}))
	require.NoError(t, demo.Register(other, demo.NewCatalog()))
	_, err = other.LoadFile(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, 2, models.Count[demo.Unit](w))
	assert.Equal(t, 9, models.Count[demo.Item](w))
}

func TestLoadInputErrors(t *testing.T) {
	ctx := context.Background()
	_, e, _ := newParty(t, snapshot.All(encoding.JSONCodec{}))

	_, err := e.Load(ctx, snapshot.Source{File: "x.json", Bytes: []byte("{}")})
	assert.ErrorIs(t, err, snapshot.ErrAmbiguousInput)
	assert.False(t, snapshot.IsFatal(err))

	_, err = e.Load(ctx, snapshot.Source{})
	assert.ErrorIs(t, err, snapshot.ErrNoInput)

	_, err = e.LoadBytes(ctx, []byte("not json"))
	assert.ErrorIs(t, err, snapshot.ErrCodec)

	_, err = e.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, snapshot.ErrCodec)
}

func TestLoadSkipsBadRecords(t *testing.T) {
	ctx := context.Background()
	w, e, _ := newParty(t, snapshot.All(encoding.JSONCodec{}))
	_, err := e.RemoveRegistered(ctx)
	require.NoError(t, err)

	doc := `{
		"Unit": [{"path": "Players::Ann", "parent": "Players", "value": {"name": "Ann", "hp": 3}}, {"value": "oops"}],
		"Status": [{"path": "Players::Ann", "value": "Cursed"}],
		"Ghost": [{}]
	}`
	res, err := e.LoadBytes(ctx, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied["Unit"])
	assert.Equal(t, 0, res.Applied["Status"])
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []string{"Ghost"}, res.Ignored)
	require.Len(t, res.Reported, 3)
	assert.ErrorIs(t, res.Reported[0], snapshot.ErrCodec)
	assert.ErrorIs(t, res.Reported[1], snapshot.ErrConvert)
	assert.ErrorIs(t, res.Reported[2], snapshot.ErrUnknownType)

	ann := unitNamed(t, w, "Ann")
	assert.False(t, models.Has[demo.Status](w, ann))
}

func TestDuplicateResourceRecordsAreFatal(t *testing.T) {
	ctx := context.Background()
	w, e, _ := newParty(t, snapshot.All(encoding.JSONCodec{}))
	w.RemoveResource(models.TypeOf[demo.Campaign]())

	_, err := e.LoadBytes(ctx, []byte(`{"Campaign": [{"value": {"turn": 1}}, {"value": {"turn": 2}}]}`))
	assert.ErrorIs(t, err, snapshot.ErrDuplicateResource)
	assert.True(t, snapshot.IsFatal(err))
	_, ok := models.GetResource[demo.Campaign](w)
	assert.False(t, ok)
}

func TestAbsentResourceIsNotSaved(t *testing.T) {
	ctx := context.Background()
	w, e, _ := newParty(t, snapshot.All(encoding.JSONCodec{}))
	w.RemoveResource(models.TypeOf[demo.Campaign]())

	res, err := e.Save(ctx, snapshot.Sinks{})
	require.NoError(t, err)
	_, ok := res.Document["Campaign"]
	assert.False(t, ok)
}

func TestEventsArePublished(t *testing.T) {
	ctx := context.Background()
	b := bus.New()
	var seen []string
	for _, kind := range []string{snapshot.EventSaved, snapshot.EventLoaded, snapshot.EventReset} {
		_, err := b.Subscribe(kind, func(ev bus.Event) error {
			seen = append(seen, ev.Type())
			assert.NotEmpty(t, ev.Metadata()["op"])
			assert.Equal(t, "all", ev.Source())
			return nil
		})
		require.NoError(t, err)
	}
	_, e, _ := newParty(t, snapshot.All(encoding.JSONCodec{}), snapshot.WithEventBus(b), snapshot.WithWorkers(2))

	data, err := e.SaveBytes(ctx)
	require.NoError(t, err)
	_, err = e.RemoveRegistered(ctx)
	require.NoError(t, err)
	_, err = e.LoadBytes(ctx, data)
	require.NoError(t, err)

	assert.Equal(t, []string{snapshot.EventSaved, snapshot.EventReset, snapshot.EventLoaded}, seen)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, e, _ := newParty(t, snapshot.All(encoding.JSONCodec{}))

	_, err := e.SaveBytes(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
