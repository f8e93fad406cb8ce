package instancer

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gekko3d/instancer/cityrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Color is an RGB triple in [0,1]. In YAML it is written as "#rrggbb", a CSS
// colour name ("olive") or a three-element float list.
type Color mgl32.Vec3

func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var rgb []float32
		if err := node.Decode(&rgb); err != nil {
			return err
		}
		if len(rgb) != 3 {
			return fmt.Errorf("%w: line %d: colour list needs 3 components, got %d", ErrInvalidConfig, node.Line, len(rgb))
		}
		*c = Color{rgb[0], rgb[1], rgb[2]}
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

func (c Color) MarshalYAML() (any, error) {
	return fmt.Sprintf("#%02x%02x%02x", to8(c[0]), to8(c[1]), to8(c[2])), nil
}

func to8(f float32) uint8 {
	return uint8(mgl32.Clamp(f, 0, 1)*255 + 0.5)
}

// ParseColor accepts "#rrggbb" or a CSS colour name.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) != 6 {
			return Color{}, fmt.Errorf("%w: colour %q is not #rrggbb", ErrInvalidConfig, s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return Color{}, fmt.Errorf("%w: colour %q: %v", ErrInvalidConfig, s, err)
		}
		return Color{
			float32((v>>16)&0xff) / 255,
			float32((v>>8)&0xff) / 255,
			float32(v&0xff) / 255,
		}, nil
	}
	rgba, ok := colornames.Map[s]
	if !ok {
		return Color{}, fmt.Errorf("%w: unknown colour name %q", ErrInvalidConfig, s)
	}
	return Color{float32(rgba.R) / 255, float32(rgba.G) / 255, float32(rgba.B) / 255}, nil
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type PaletteConfig struct {
	Low  Color `yaml:"low"`
	High Color `yaml:"high"`
	Land Color `yaml:"land"`
}

type LODConfig struct {
	LOD0 float32 `yaml:"lod0"`
	LOD1 float32 `yaml:"lod1"`
	Cull float32 `yaml:"cull"`
}

type GridConfig struct {
	NX      int     `yaml:"nx"`
	NZ      int     `yaml:"nz"`
	Spacing float32 `yaml:"spacing"`
}

type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Variant string        `yaml:"variant"`
	Palette PaletteConfig `yaml:"palette"`
	LOD     LODConfig     `yaml:"lod"`
	Grid    GridConfig    `yaml:"grid"`
	Clear   Color         `yaml:"clear"`
	Debug   bool          `yaml:"debug"`
}

func DefaultConfig() Config {
	pal := core.DefaultPalette()
	return Config{
		Window:  WindowConfig{Width: 1280, Height: 720, Title: "CityRT"},
		Variant: core.VariantPalette.String(),
		Palette: PaletteConfig{Low: Color(pal.Low), High: Color(pal.High), Land: Color(pal.Land)},
		LOD:     LODConfig{LOD0: 90, LOD1: 190, Cull: 380},
		Grid:    GridConfig{NX: 48, NZ: 48, Spacing: 6},
		Clear:   Color{0.06, 0.06, 0.08},
	}
}

// ParseConfig overlays YAML on the defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if _, err := core.ParseVariant(c.Variant); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, d := range []float32{c.LOD.LOD0, c.LOD.LOD1, c.LOD.Cull} {
		if math.IsInf(float64(d), 0) || math.IsNaN(float64(d)) {
			return fmt.Errorf("%w: lod distances must be finite, got %v/%v/%v",
				ErrInvalidConfig, c.LOD.LOD0, c.LOD.LOD1, c.LOD.Cull)
		}
	}
	if !(c.LOD.LOD0 > 0 && c.LOD.LOD0 <= c.LOD.LOD1 && c.LOD.LOD1 <= c.LOD.Cull) {
		return fmt.Errorf("%w: lod distances must satisfy 0 < lod0 <= lod1 <= cull, got %v/%v/%v",
			ErrInvalidConfig, c.LOD.LOD0, c.LOD.LOD1, c.LOD.Cull)
	}
	if c.Grid.NX < 0 || c.Grid.NZ < 0 || c.Grid.Spacing <= 0 {
		return fmt.Errorf("%w: grid %dx%d spacing %v", ErrInvalidConfig, c.Grid.NX, c.Grid.NZ, c.Grid.Spacing)
	}
	return nil
}

// PipelineVariant returns the parsed shader variant.
func (c Config) PipelineVariant() (core.Variant, error) {
	return core.ParseVariant(c.Variant)
}

func (c Config) CorePalette() core.Palette {
	return core.Palette{
		Low:  mgl32.Vec3(c.Palette.Low),
		High: mgl32.Vec3(c.Palette.High),
		Land: mgl32.Vec3(c.Palette.Land),
	}
}
