package gdatastore

import (
	"fmt"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"spawncycle.ai/internal/sim/spawncycle/spiral"
	"spawncycle.ai/internal/sim/spawncycle/square"
)

const (
	progressObject = "progress"
	spiralProp     = "spiral"
	squareProp     = "square"
)

// Backend is the subset of *gdata.Manager the store needs.
type Backend interface {
	ObjectPropExists(objectKey, propKey string) bool
	LoadObjectProp(objectKey, propKey string) ([]byte, error)
	SaveObjectProp(objectKey, propKey string, data []byte) error
}

// Store keeps sequencer progression in the per-user game data directory
// instead of the main config file. Each world gets its own object.
type Store struct {
	b      Backend
	object string
}

type spiralDoc struct {
	Radius int `yaml:"radius"`
	Angle  int `yaml:"angle"`
}

type squareDoc struct {
	Layer     int `yaml:"layer"`
	StepIndex int `yaml:"stepIndex"`
}

func Open(appName, worldName string) (*Store, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("gdata open %q: %w", appName, err)
	}
	return New(m, worldName), nil
}

func New(b Backend, worldName string) *Store {
	obj := progressObject
	if worldName != "" {
		obj = progressObject + "_" + worldName
	}
	return &Store{b: b, object: obj}
}

func (s *Store) load(prop string, v any) (bool, error) {
	if !s.b.ObjectPropExists(s.object, prop) {
		return false, nil
	}
	data, err := s.b.LoadObjectProp(s.object, prop)
	if err != nil {
		return false, fmt.Errorf("load %s/%s: %w", s.object, prop, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", s.object, prop, err)
	}
	return true, nil
}

func (s *Store) save(prop string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.b.SaveObjectProp(s.object, prop, data); err != nil {
		return fmt.Errorf("save %s/%s: %w", s.object, prop, err)
	}
	return nil
}

func (s *Store) LoadSpiral() (spiral.State, error) {
	var d spiralDoc
	ok, err := s.load(spiralProp, &d)
	if err != nil || !ok {
		return spiral.Initial(), err
	}
	return spiral.State{Radius: d.Radius, Angle: d.Angle}, nil
}

func (s *Store) SaveSpiral(st spiral.State) error {
	return s.save(spiralProp, spiralDoc{Radius: st.Radius, Angle: st.Angle})
}

func (s *Store) LoadSquare() (square.State, error) {
	var d squareDoc
	ok, err := s.load(squareProp, &d)
	if err != nil || !ok {
		return square.State{}, err
	}
	return square.State{Ring: d.Layer, StepIndex: d.StepIndex}, nil
}

func (s *Store) SaveSquare(st square.State) error {
	return s.save(squareProp, squareDoc{Layer: st.Ring, StepIndex: st.StepIndex})
}
