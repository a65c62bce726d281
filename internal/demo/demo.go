// Package demo builds a small RPG party (units carrying equipment, items and
// buffs) and registers its component types with a snapshot engine. The CLI
// and the server use it as their sample world.
package demo

import (
	"errors"
	"fmt"

	"github.com/zeusync/savestate/internal/core/interner"
	"github.com/zeusync/savestate/internal/core/models"
	"github.com/zeusync/savestate/internal/core/snapshot"
	"github.com/zeusync/savestate/pkg/encoding"
)

// Group markers. They are not saved.
type (
	Units   struct{}
	Players struct{}
	Enemies struct{}
)

// Unit is named by its Name.
type Unit struct {
	Name string `json:"name" yaml:"name"`
	HP   int32  `json:"hp" yaml:"hp"`
}

// Weapon marks the main hand slot of a unit.
type Weapon struct{}

// Offhand marks the off hand slot of a unit.
type Offhand struct{}

type Item struct {
	Name string `json:"name" yaml:"name"`
}

type Buff struct {
	Stat  string  `json:"stat" yaml:"stat"`
	Value float32 `json:"value" yaml:"value"`
}

type StatusFlags uint32

// Status holds interned status effects. It is saved as "Poisoned|Slowed".
type Status struct {
	Flags StatusFlags
}

// Focus points at another entity.
type Focus struct {
	Target models.EntityID
}

type focusData struct {
	Target encoding.EntityPath `json:"target" yaml:"target"`
}

// Campaign is a world resource.
type Campaign struct {
	Turn       int    `json:"turn" yaml:"turn"`
	Difficulty string `json:"difficulty" yaml:"difficulty"`
}

// Catalog carries the interners shared by conversions.
type Catalog struct {
	Status *interner.Flags[StatusFlags]
}

func NewCatalog() *Catalog {
	return &Catalog{Status: interner.NewFlags[StatusFlags]("Poisoned", "Slowed", "Blessed")}
}

// Register adds the party types to e in the order Unit, Weapon, Offhand,
// Buff, Item, Status, Focus followed by the Campaign resource.
func Register(e *snapshot.Engine, catalog *Catalog) error {
	return errors.Join(
		snapshot.RegisterCore(e, "Unit", func(u *Unit) (string, bool) { return u.Name, true }),
		snapshot.RegisterCore(e, "Weapon", func(*Weapon) (string, bool) { return "mainhand", true }),
		snapshot.RegisterCore(e, "Offhand", func(*Offhand) (string, bool) { return "offhand", true }),
		snapshot.RegisterCore[Buff](e, "Buff", nil),
		snapshot.RegisterCore[Item](e, "Item", nil),
		snapshot.Register(e, snapshot.Component[Status, string, *Catalog]{
			Name:    "Status",
			Context: catalog,
			Save: func(s *Status, _ snapshot.SaveScope, c *Catalog) (string, error) {
				return c.Status.String(s.Flags), nil
			},
			Load: func(data string, _ *snapshot.LoadScope, c *Catalog) (Status, error) {
				flags, ok := c.Status.TryGet(data)
				if !ok {
					return Status{}, fmt.Errorf("unknown status %q", data)
				}
				return Status{Flags: flags}, nil
			},
		}),
		snapshot.Register(e, snapshot.Component[Focus, focusData, struct{}]{
			Name: "Focus",
			Save: func(f *Focus, scope snapshot.SaveScope, _ struct{}) (focusData, error) {
				return focusData{Target: scope.PathOf(f.Target)}, nil
			},
			Load: func(data focusData, scope *snapshot.LoadScope, _ struct{}) (Focus, error) {
				if data.Target.IsUnique() {
					return Focus{}, errors.New("focus target has no path")
				}
				return Focus{Target: scope.Fetch(data.Target)}, nil
			},
		}),
		snapshot.RegisterCoreResource[Campaign](e, "Campaign"),
	)
}

// Party holds the ids of the entities Populate created.
type Party struct {
	Units, Players, Enemies models.EntityID
	John, Jane              models.EntityID
}

// Populate spawns the sample party into w.
func Populate(w *models.World, catalog *Catalog) (Party, error) {
	var (
		p   Party
		err error
	)
	child := func(parent models.EntityID, components ...any) models.EntityID {
		if err != nil {
			return 0
		}
		var id models.EntityID
		id, err = w.SpawnChild(parent, components...)
		return id
	}

	p.Units = w.Spawn(Units{})
	p.Players = child(p.Units, Players{}, snapshot.PathName("Players"))
	p.Enemies = child(p.Units, Enemies{}, snapshot.PathName("Enemies"))

	p.John = child(p.Players, Unit{Name: "John", HP: 32}, Status{Flags: catalog.Status.Get("Blessed")})
	rapier := child(p.John, Weapon{}, Item{Name: "Rapier"})
	child(rapier, Buff{Stat: "Damage", Value: 12.5})
	child(rapier, Buff{Stat: "Speed", Value: 4})
	buckler := child(p.John, Offhand{}, Item{Name: "Buckler"})
	child(buckler, Buff{Stat: "Defense", Value: 6.5})
	ring := child(p.John, Item{Name: "HP Ring"})
	child(ring, Buff{Stat: "Hp", Value: 10})
	child(p.John, Item{Name: "HP Potion"})
	child(p.John, Item{Name: "HP Potion"})

	p.Jane = child(p.Players, Unit{Name: "Jane", HP: 28}, Focus{Target: p.John})
	staff := child(p.Jane, Weapon{}, Item{Name: "Wooden Staff"})
	child(staff, Buff{Stat: "Magic", Value: 6.5})
	fireRing := child(p.Jane, Item{Name: "Fire Ring"})
	child(fireRing, Buff{Stat: "Fire Damage", Value: 5})
	child(p.Jane, Item{Name: "Herb"})
	child(p.Jane, Item{Name: "Mana Potion"})

	if err != nil {
		return Party{}, err
	}
	w.SetResource(Campaign{Turn: 1, Difficulty: "normal"})
	return p, nil
}
