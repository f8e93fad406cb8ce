package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var (
	ErrDuplicateArchetype = errors.New("archetype already registered")
	ErrInvalidArchetype   = errors.New("invalid archetype")
)

// ArchetypeNamespace seeds the name-based archetype ids, so an archetype
// keeps its id across runs and machines.
var ArchetypeNamespace = uuid.MustParse("5b0f6a8e-3c1d-4e7a-9f21-7d4c8b2e6a10")

func ArchetypeID(name string) uuid.UUID {
	return uuid.NewSHA1(ArchetypeNamespace, []byte(name))
}

// Archetype is one building type. Index is its dense position in the library
// and is what instances carry in misc.y.
type Archetype struct {
	ID       uuid.UUID
	Index    uint16
	Name     string
	Category core.Category
	BaseHalf mgl32.Vec3 // half extents at scale 1
}

type Library struct {
	archetypes []Archetype
	byID       map[uuid.UUID]uint16
}

func NewLibrary() *Library {
	return &Library{byID: make(map[uuid.UUID]uint16)}
}

// DefaultLibrary holds the three built-in archetypes.
func DefaultLibrary() *Library {
	lib := NewLibrary()
	lib.MustRegister("lowrise_box", core.CategoryLow, mgl32.Vec3{1.5, 0.4, 1.0})
	lib.MustRegister("highrise_box", core.CategoryHigh, mgl32.Vec3{0.45, 3.0, 0.45})
	lib.MustRegister("pyramid_tower", core.CategoryLand, mgl32.Vec3{1.0, 0.75, 1.0})
	return lib
}

func (l *Library) Register(name string, cat core.Category, baseHalf mgl32.Vec3) (Archetype, error) {
	if name == "" {
		return Archetype{}, fmt.Errorf("%w: empty name", ErrInvalidArchetype)
	}
	if baseHalf[0] <= 0 || baseHalf[1] <= 0 || baseHalf[2] <= 0 {
		return Archetype{}, fmt.Errorf("%w: %s has non-positive half extents %v", ErrInvalidArchetype, name, baseHalf)
	}
	if len(l.archetypes) > math.MaxUint16 {
		return Archetype{}, fmt.Errorf("%w: library full", ErrInvalidArchetype)
	}
	id := ArchetypeID(name)
	if _, ok := l.byID[id]; ok {
		return Archetype{}, fmt.Errorf("%w: %s", ErrDuplicateArchetype, name)
	}

	a := Archetype{
		ID:       id,
		Index:    uint16(len(l.archetypes)),
		Name:     name,
		Category: cat,
		BaseHalf: baseHalf,
	}
	l.archetypes = append(l.archetypes, a)
	l.byID[id] = a.Index
	return a, nil
}

func (l *Library) MustRegister(name string, cat core.Category, baseHalf mgl32.Vec3) Archetype {
	a, err := l.Register(name, cat, baseHalf)
	if err != nil {
		panic(err)
	}
	return a
}

func (l *Library) Len() int { return len(l.archetypes) }

func (l *Library) ByIndex(i uint16) (Archetype, bool) {
	if int(i) >= len(l.archetypes) {
		return Archetype{}, false
	}
	return l.archetypes[i], true
}

func (l *Library) ByID(id uuid.UUID) (Archetype, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Archetype{}, false
	}
	return l.archetypes[i], true
}

func (l *Library) IndicesByCategory(c core.Category) []uint16 {
	var out []uint16
	for _, a := range l.archetypes {
		if a.Category == c {
			out = append(out, a.Index)
		}
	}
	return out
}

// All returns the archetypes in index order.
func (l *Library) All() []Archetype {
	return append([]Archetype(nil), l.archetypes...)
}
