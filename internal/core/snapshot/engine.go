package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/savestate/internal/core/events/bus"
	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/pkg/concurrent"
	"github.com/zeusync/savestate/pkg/encoding"
)

// Event types published after each completed operation.
const (
	EventSaved     = "snapshot.saved"
	EventLoaded    = "snapshot.loaded"
	EventReset     = "snapshot.reset"
	EventDespawned = "snapshot.despawned"
)

// Engine saves and loads the registered types of one graph under one profile.
// Operations on one engine are serialized; separate engines are independent.
type Engine struct {
	mu sync.Mutex

	graph   Graph
	profile Profile
	entries []entry
	byName  map[string]entry

	logger  log.Log
	bus     bus.EventBus
	workers int
}

type Option func(*Engine)

func WithLogger(l log.Log) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEventBus publishes one event per completed operation on b.
func WithEventBus(b bus.EventBus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithWorkers bounds the number of types extracted concurrently. Zero means
// one goroutine per type.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

func NewEngine(g Graph, p Profile, opts ...Option) *Engine {
	e := &Engine{
		graph:   g,
		profile: p,
		byName:  make(map[string]entry),
		logger:  log.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(log.String("profile", p.Name()))
	return e
}

func (e *Engine) Profile() Profile { return e.profile }

func (e *Engine) Graph() Graph { return e.graph }

// TypeNames returns registered type names in registration order.
func (e *Engine) TypeNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.entries))
	for i, en := range e.entries {
		out[i] = en.name()
	}
	return out
}

func (e *Engine) register(en entry) error {
	if err := validTypeName(en.name()); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byName[en.name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTypeName, en.name())
	}
	e.byName[en.name()] = en
	e.entries = append(e.entries, en)
	e.logger.Debug("type registered", log.String("type", en.name()))
	return nil
}

// Sinks selects the outputs of a save. Every selected sink is attempted even
// if another one fails.
type Sinks struct {
	File   string
	Bytes  bool
	String bool
}

// SinkErrors holds per sink failures of a save.
type SinkErrors struct {
	File   error
	Bytes  error
	String error
}

func (s SinkErrors) Err() error {
	return errors.Join(s.File, s.Bytes, s.String)
}

type SaveResult struct {
	Op       string
	Document encoding.Document
	Bytes    []byte
	String   string
	// Digest of the encoded document, set when bytes or a file were written.
	Digest   string
	Records  int
	Sinks    SinkErrors
	Reported []error
}

// Source is the input of a load. Exactly one field must be set.
type Source struct {
	File  string
	Bytes []byte
}

// LoadResult counts per type the records whose value was inserted. A record
// whose parent could not be attached still counts as applied; the attach
// error is in Reported.
type LoadResult struct {
	Op       string         `json:"op"`
	Applied  map[string]int `json:"applied"`
	Skipped  int            `json:"skipped"`
	Spawned  int            `json:"spawned"`
	Ignored  []string       `json:"ignored,omitempty"`
	Reported []error        `json:"-"`
}

type phase struct {
	name string
	run  func(ctx context.Context) error
}

func (e *Engine) runPhases(ctx context.Context, logger log.Log, phases ...phase) error {
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := p.run(ctx); err != nil {
			logger.Error("phase failed", log.String("phase", p.name), log.Error(err), log.Bool("fatal", IsFatal(err)))
			return fmt.Errorf("%s: %w", p.name, err)
		}
		logger.Debug("phase done", log.String("phase", p.name), log.Duration("took", time.Since(start)))
	}
	return nil
}

// buildNames collects PathName components from the whole graph, then the
// names derived by registered types on selected entities.
func (e *Engine) buildNames() (*Names, error) {
	names := NewNames()
	for _, id := range e.graph.EntitiesWith(pathNameType) {
		raw, ok := e.graph.Component(id, pathNameType)
		if !ok {
			continue
		}
		if err := names.Push(id, string(raw.(PathName))); err != nil {
			return nil, err
		}
	}
	for _, en := range e.entries {
		if err := en.collectNames(e.graph, e.profile, names); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func (e *Engine) begin(kind string) (string, log.Log) {
	op := uuid.NewString()
	return op, e.logger.With(log.Op(op), log.String("operation", kind))
}

func (e *Engine) publish(kind, op string, data any) {
	if e.bus == nil {
		return
	}
	ev := bus.NewEvent(kind, e.profile.Name(), data, map[string]any{"op": op})
	if err := e.bus.Publish(ev); err != nil {
		e.logger.Warn("event handler failed", log.String("event", kind), log.Op(op), log.Error(err))
	}
}

// Save captures the selected entities into a document and writes it to the
// selected sinks.
func (e *Engine) Save(ctx context.Context, sinks Sinks) (*SaveResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op, logger := e.begin("save")
	rep := &reporter{logger: logger}
	res := &SaveResult{Op: op}
	var (
		names *Names
		sc    *SerializeContext
	)
	err := e.runPhases(ctx, logger,
		phase{"names", func(context.Context) (err error) {
			names, err = e.buildNames()
			return err
		}},
		phase{"paths", func(context.Context) error {
			paths, err := names.Paths(e.graph)
			if err != nil {
				return err
			}
			sc = newSerializeContext(e.graph, e.profile, paths)
			return nil
		}},
		phase{"extract", func(ctx context.Context) error {
			return e.extract(ctx, sc, rep)
		}},
		phase{"write", func(context.Context) error {
			res.Document = sc.Document()
			res.Records = res.Document.Len()
			e.write(sc.Document(), sinks, res, rep)
			return nil
		}},
	)
	if err != nil {
		return nil, err
	}
	res.Reported = rep.errors()
	logger.Info("snapshot saved", log.Int("records", res.Records), log.Int("reported", len(res.Reported)), log.String("digest", res.Digest))
	e.publish(EventSaved, op, res)
	return res, nil
}

func (e *Engine) extract(ctx context.Context, sc *SerializeContext, rep *reporter) error {
	type group struct {
		records []encoding.PathedValue
		present bool
	}
	groups, err := concurrent.MapOrdered(ctx, e.entries, e.workers, func(_ context.Context, _ int, en entry) (group, error) {
		records, present, err := en.extract(sc, rep)
		return group{records: records, present: present}, err
	})
	if err != nil {
		return err
	}
	for i, g := range groups {
		if !g.present {
			continue
		}
		if err = sc.merge(e.entries[i].name(), g.records); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) write(doc encoding.Document, sinks Sinks, res *SaveResult, rep *reporter) {
	codec := e.profile.codec
	if sinks.File != "" {
		data, err := encoding.WriteFile(codec, sinks.File, doc)
		if err != nil {
			res.Sinks.File = fmt.Errorf("%w: write %s: %v", ErrCodec, sinks.File, err)
			rep.report("file sink failed", res.Sinks.File, log.String("file", sinks.File))
		} else {
			res.Digest = encoding.Digest(data)
		}
	}
	if sinks.Bytes {
		data, err := codec.Marshal(doc)
		if err != nil {
			res.Sinks.Bytes = fmt.Errorf("%w: %v", ErrCodec, err)
			rep.report("bytes sink failed", res.Sinks.Bytes)
		} else {
			res.Bytes = data
			res.Digest = encoding.Digest(data)
		}
	}
	if sinks.String {
		s, err := codec.MarshalString(doc)
		if err != nil {
			res.Sinks.String = fmt.Errorf("%w: %w", ErrCodec, err)
			rep.report("string sink failed", res.Sinks.String)
		} else {
			res.String = s
		}
	}
}

// SaveBytes saves into the codec's byte form.
func (e *Engine) SaveBytes(ctx context.Context) ([]byte, error) {
	res, err := e.Save(ctx, Sinks{Bytes: true})
	if err != nil {
		return nil, err
	}
	if res.Sinks.Bytes != nil {
		return nil, res.Sinks.Bytes
	}
	return res.Bytes, nil
}

// SaveString saves into the codec's string form. Binary codecs fail with an
// error wrapping encoding.ErrUnsupportedFormat.
func (e *Engine) SaveString(ctx context.Context) (string, error) {
	res, err := e.Save(ctx, Sinks{String: true})
	if err != nil {
		return "", err
	}
	if res.Sinks.String != nil {
		return "", res.Sinks.String
	}
	return res.String, nil
}

// SaveFile saves into path.
func (e *Engine) SaveFile(ctx context.Context, path string) error {
	res, err := e.Save(ctx, Sinks{File: path})
	if err != nil {
		return err
	}
	return res.Sinks.File
}

func (e *Engine) readSource(src Source) (encoding.Document, error) {
	codec := e.profile.codec
	switch {
	case src.File != "" && src.Bytes != nil:
		return nil, ErrAmbiguousInput
	case src.File != "":
		data, err := os.ReadFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrCodec, src.File, err)
		}
		return e.decode(codec, data)
	case src.Bytes != nil:
		return e.decode(codec, src.Bytes)
	default:
		return nil, ErrNoInput
	}
}

func (e *Engine) decode(codec encoding.Codec, data []byte) (encoding.Document, error) {
	doc, err := codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	return doc, nil
}

// Load merges a document into the graph. Records whose path resolves to a
// live entity update it; others spawn new entities. Loading is best effort:
// a fatal error leaves the types applied before it in place.
func (e *Engine) Load(ctx context.Context, src Source) (*LoadResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op, logger := e.begin("load")
	rep := &reporter{logger: logger}
	res := &LoadResult{Op: op, Applied: make(map[string]int)}
	var (
		names *Names
		dc    *DeserializeContext
	)
	err := e.runPhases(ctx, logger,
		phase{"names", func(context.Context) (err error) {
			names, err = e.buildNames()
			return err
		}},
		phase{"input", func(context.Context) error {
			doc, err := e.readSource(src)
			if err != nil {
				rep.report("input rejected", err)
				return err
			}
			paths, err := names.Paths(e.graph)
			if err != nil {
				return err
			}
			dc = newDeserializeContext(e.graph, doc)
			return dc.seed(paths)
		}},
		phase{"inject", func(ctx context.Context) error {
			return e.inject(ctx, dc, res, rep)
		}},
	)
	if dc != nil {
		res.Spawned = dc.spawned
	}
	res.Reported = rep.errors()
	if err != nil {
		return res, err
	}
	logger.Info("snapshot loaded", log.Int("spawned", res.Spawned), log.Int("skipped", res.Skipped), log.Int("reported", len(res.Reported)))
	e.publish(EventLoaded, op, res)
	return res, nil
}

func (e *Engine) inject(ctx context.Context, dc *DeserializeContext, res *LoadResult, rep *reporter) error {
	codec := e.profile.codec
	for _, en := range e.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, ok := dc.take(en.name())
		if !ok {
			continue
		}
		applied, err := en.inject(dc, codec, records, rep)
		res.Applied[en.name()] = applied
		res.Skipped += len(records) - applied
		if err != nil {
			return err
		}
	}
	res.Ignored = dc.leftover()
	for _, name := range res.Ignored {
		rep.report("type ignored", fmt.Errorf("%w: %s", ErrUnknownType, name), log.String("type", name))
	}
	return nil
}

// LoadBytes merges a document given as bytes.
func (e *Engine) LoadBytes(ctx context.Context, data []byte) (*LoadResult, error) {
	if data == nil {
		data = []byte{}
	}
	return e.Load(ctx, Source{Bytes: data})
}

// LoadFile merges the document stored at path.
func (e *Engine) LoadFile(ctx context.Context, path string) (*LoadResult, error) {
	return e.Load(ctx, Source{File: path})
}

// RemoveRegistered removes every registered component type from the selected
// entities and every registered resource. It returns the number removed.
func (e *Engine) RemoveRegistered(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op, logger := e.begin("reset")
	removed := 0
	err := e.runPhases(ctx, logger, phase{"reset", func(context.Context) error {
		for _, en := range e.entries {
			removed += en.reset(e.graph, e.profile)
		}
		return nil
	}})
	if err != nil {
		return removed, err
	}
	logger.Info("registered types removed", log.Int("removed", removed))
	e.publish(EventReset, op, removed)
	return removed, nil
}

// DespawnMarked despawns every entity carrying the profile's marker together
// with its descendants. It is refused for the all-profile.
func (e *Engine) DespawnMarked(ctx context.Context) (int, error) {
	if e.profile.IsAll() {
		return 0, ErrDespawnAll
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	op, logger := e.begin("despawn")
	despawned := 0
	err := e.runPhases(ctx, logger, phase{"despawn", func(context.Context) error {
		ids := e.graph.EntitiesWith(e.profile.marker)
		slices.Sort(ids)
		for _, id := range ids {
			// Earlier iterations may have despawned id as a descendant.
			if e.graph.Despawn(id) {
				despawned++
			}
		}
		return nil
	}})
	if err != nil {
		return despawned, err
	}
	logger.Info("marked entities despawned", log.Int("despawned", despawned))
	e.publish(EventDespawned, op, despawned)
	return despawned, nil
}
