package model

import "fmt"

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) String() string { return fmt.Sprintf("%d, %d, %d", v.X, v.Y, v.Z) }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

// Center is a horizontal cycle origin; Y is resolved per point.
type Center struct {
	X int
	Z int
}

// SpawnPoint is a resolved spawn location in a named world.
type SpawnPoint struct {
	World string
	Pos   Vec3i
}

// HeightFunc returns the highest solid block Y at a column.
type HeightFunc func(x, z int) (int, error)

type Player struct {
	ID       string
	Name     string
	JoinedAt uint64
	Bed      *Vec3i
	Online   bool
}

func (p *Player) HasBed() bool { return p != nil && p.Bed != nil }
