package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/savestate/internal/config"
	"github.com/zeusync/savestate/internal/core/events/bus"
	"github.com/zeusync/savestate/internal/core/models"
	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/internal/core/snapshot"
	"github.com/zeusync/savestate/internal/core/storage"
	"github.com/zeusync/savestate/internal/demo"
	"github.com/zeusync/savestate/internal/server"
)

// App bundles the long lived components built from one configuration.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Bus     bus.EventBus
	World   *models.World
	Catalog *demo.Catalog
	Engine  *snapshot.Engine
	Storage storage.Storage
	Server  *server.Server
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideEventBus,
	ProvideWorld,
	ProvideCatalog,
	ProvideEngine,
	ProvideStorage,
	ProvideServer,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg *config.Config) *log.Logger {
	return log.New(cfg.LogLevel())
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvideWorld() *models.World {
	return models.NewWorld()
}

func ProvideCatalog() *demo.Catalog {
	return demo.NewCatalog()
}

// ProvideEngine builds an all-profile engine with the demo types registered.
func ProvideEngine(cfg *config.Config, w *models.World, catalog *demo.Catalog, logger *log.Logger, b bus.EventBus) (*snapshot.Engine, error) {
	codec, err := cfg.Codec()
	if err != nil {
		return nil, err
	}
	e := snapshot.NewEngine(w, snapshot.All(codec),
		snapshot.WithLogger(logger),
		snapshot.WithEventBus(b),
		snapshot.WithWorkers(cfg.Snapshot.Workers),
	)
	if err = demo.Register(e, catalog); err != nil {
		return nil, err
	}
	return e, nil
}

// ProvideStorage keeps save slots in server.slots_dir, or in memory when unset.
func ProvideStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.Server.SlotsDir == "" {
		return storage.NewMemory(), nil
	}
	return storage.NewFile(cfg.Server.SlotsDir, ".snap")
}

func ProvideServer(cfg *config.Config, e *snapshot.Engine, st storage.Storage, logger *log.Logger) *server.Server {
	return server.New(e,
		server.WithLogger(logger),
		server.WithToken(cfg.Server.Token),
		server.WithStorage(st),
	)
}
