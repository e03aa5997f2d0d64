package multiworld

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config lists the worlds hosted by one server process.
type Config struct {
	DefaultWorld string      `yaml:"default_world"`
	Seed         int64       `yaml:"seed"`
	TickRateHz   int         `yaml:"tick_rate_hz"`
	Worlds       []WorldSpec `yaml:"worlds"`
}

type WorldSpec struct {
	Name       string    `yaml:"name"`
	SeedOffset int64     `yaml:"seed_offset"`
	BoundaryR  int       `yaml:"boundary_r"`
	BaseHeight int       `yaml:"base_height"`
	Amplitude  int       `yaml:"amplitude"`
	Grid       int       `yaml:"grid"`
	Spawn      SpawnSpec `yaml:"spawn"`
}

type SpawnSpec struct {
	X int `yaml:"x"`
	Z int `yaml:"z"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg.Worlds = nil
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultWorld: "world",
		Seed:         1337,
		TickRateHz:   20,
		Worlds: []WorldSpec{
			{Name: "world", BoundaryR: 29_999_984, BaseHeight: 63, Amplitude: 24, Grid: 64},
			{Name: "world_nether", SeedOffset: 1, BoundaryR: 3_749_998, BaseHeight: 31, Amplitude: 8, Grid: 32},
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	for i := range c.Worlds {
		c.Worlds[i].Name = strings.TrimSpace(c.Worlds[i].Name)
		if c.Worlds[i].BaseHeight <= 0 {
			c.Worlds[i].BaseHeight = 63
		}
		if c.Worlds[i].Grid <= 0 {
			c.Worlds[i].Grid = 64
		}
	}
	if strings.TrimSpace(c.DefaultWorld) == "" && len(c.Worlds) > 0 {
		c.DefaultWorld = c.Worlds[0].Name
	}
}

func (c Config) Validate() error {
	c.Normalize()
	if len(c.Worlds) == 0 {
		return fmt.Errorf("worlds must not be empty")
	}
	seen := map[string]bool{}
	for _, w := range c.Worlds {
		if w.Name == "" {
			return fmt.Errorf("world name must not be empty")
		}
		if strings.Contains(w.Name, ".") {
			return fmt.Errorf("world name %q must not contain '.'", w.Name)
		}
		if seen[w.Name] {
			return fmt.Errorf("duplicate world name: %s", w.Name)
		}
		seen[w.Name] = true
		if w.BoundaryR <= 0 {
			return fmt.Errorf("world %s boundary_r must be > 0", w.Name)
		}
		if w.Amplitude < 0 {
			return fmt.Errorf("world %s amplitude must be >= 0", w.Name)
		}
		if w.Spawn.X < -w.BoundaryR || w.Spawn.X > w.BoundaryR || w.Spawn.Z < -w.BoundaryR || w.Spawn.Z > w.BoundaryR {
			return fmt.Errorf("world %s spawn outside boundary_r", w.Name)
		}
	}
	if !seen[c.DefaultWorld] {
		return fmt.Errorf("default_world %q not found in worlds", c.DefaultWorld)
	}
	return nil
}
