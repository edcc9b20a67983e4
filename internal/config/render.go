package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kode-ml/kode/internal/binning"
	"github.com/kode-ml/kode/internal/fsutil"
)

// RenderConfig enumerates every rendering default so a caller can override
// one value without threading new parameters through each call site.
// Nil fields fall back to the defaults returned by the Get* methods.
type RenderConfig struct {
	// 2D histogram and heat-map grid
	Grid2DPoints *int     `json:"grid_2d_points,omitempty" yaml:"grid_2d_points,omitempty"`
	Grid2DLimit  *float64 `json:"grid_2d_limit,omitempty" yaml:"grid_2d_limit,omitempty"`

	// 1D distribution overlay
	Overlay1DBins  *int     `json:"overlay_1d_bins,omitempty" yaml:"overlay_1d_bins,omitempty"`
	Overlay1DLimit *float64 `json:"overlay_1d_limit,omitempty" yaml:"overlay_1d_limit,omitempty"`
	OverlayYMax    *float64 `json:"overlay_y_max,omitempty" yaml:"overlay_y_max,omitempty"`

	// Colour scale shared by compared heat maps
	VMin    *float64 `json:"vmin,omitempty" yaml:"vmin,omitempty"`
	VMax    *float64 `json:"vmax,omitempty" yaml:"vmax,omitempty"`
	Palette *string  `json:"palette,omitempty" yaml:"palette,omitempty"` // "magma", "oranges", "blackbody", "kindlmann"
	Axis    *bool    `json:"axis,omitempty" yaml:"axis,omitempty"`       // keep axis decoration on heat maps

	// Density estimation
	KDEBandwidth         *string  `json:"kde_bandwidth,omitempty" yaml:"kde_bandwidth,omitempty"` // "scott", "silverman" or a number
	KDEMeshPoints        *int     `json:"kde_mesh_points,omitempty" yaml:"kde_mesh_points,omitempty"`
	KDEPalette           *string  `json:"kde_palette,omitempty" yaml:"kde_palette,omitempty"`
	ConditionalBandwidth *float64 `json:"conditional_bandwidth,omitempty" yaml:"conditional_bandwidth,omitempty"`

	// Pairwise matrix diagonal
	MarginalBins *int `json:"marginal_bins,omitempty" yaml:"marginal_bins,omitempty"`

	// Trajectory overlays
	TrajectoryPoints *int    `json:"trajectory_points,omitempty" yaml:"trajectory_points,omitempty"`
	TrajectorySeed   *uint64 `json:"trajectory_seed,omitempty" yaml:"trajectory_seed,omitempty"`

	// Figure size in inches
	PanelSize *float64 `json:"panel_size,omitempty" yaml:"panel_size,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyRenderConfig returns a RenderConfig with all fields set to nil, so
// every Get* method yields its default.
func EmptyRenderConfig() *RenderConfig {
	return &RenderConfig{}
}

// DefaultRenderConfig returns a RenderConfig with every field populated
// from the defaults.
func DefaultRenderConfig() *RenderConfig {
	c := EmptyRenderConfig()
	return &RenderConfig{
		Grid2DPoints:         ptrInt(c.GetGrid2DPoints()),
		Grid2DLimit:          ptrFloat64(c.GetGrid2DLimit()),
		Overlay1DBins:        ptrInt(c.GetOverlay1DBins()),
		Overlay1DLimit:       ptrFloat64(c.GetOverlay1DLimit()),
		OverlayYMax:          ptrFloat64(c.GetOverlayYMax()),
		VMin:                 ptrFloat64(c.GetVMin()),
		VMax:                 ptrFloat64(c.GetVMax()),
		Palette:              ptrString(c.GetPalette()),
		Axis:                 ptrBool(c.GetAxis()),
		KDEBandwidth:         ptrString(c.GetKDEBandwidth()),
		KDEMeshPoints:        ptrInt(c.GetKDEMeshPoints()),
		KDEPalette:           ptrString(c.GetKDEPalette()),
		ConditionalBandwidth: ptrFloat64(c.GetConditionalBandwidth()),
		MarginalBins:         ptrInt(c.GetMarginalBins()),
		TrajectoryPoints:     ptrInt(c.GetTrajectoryPoints()),
		TrajectorySeed:       ptrUint64(c.GetTrajectorySeed()),
		PanelSize:            ptrFloat64(c.GetPanelSize()),
	}
}

// LoadRenderConfig loads a RenderConfig from a .json, .yaml or .yml file.
// Fields omitted from the file keep their defaults, so partial configs are
// safe.
func LoadRenderConfig(path string) (*RenderConfig, error) {
	return LoadRenderConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadRenderConfigFS is LoadRenderConfig reading from fsys.
func LoadRenderConfigFS(fsys fsutil.FileSystem, path string) (*RenderConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRenderConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", strings.TrimPrefix(ext, "."), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *RenderConfig) Validate() error {
	if c.Grid2DPoints != nil && *c.Grid2DPoints < 2 {
		return fmt.Errorf("grid_2d_points must be at least 2, got %d", *c.Grid2DPoints)
	}
	if c.Grid2DLimit != nil && !(*c.Grid2DLimit > 0) {
		return fmt.Errorf("grid_2d_limit must be positive, got %f", *c.Grid2DLimit)
	}
	if c.Overlay1DBins != nil && *c.Overlay1DBins < 1 {
		return fmt.Errorf("overlay_1d_bins must be positive, got %d", *c.Overlay1DBins)
	}
	if c.Overlay1DLimit != nil && !(*c.Overlay1DLimit > 0) {
		return fmt.Errorf("overlay_1d_limit must be positive, got %f", *c.Overlay1DLimit)
	}
	if c.OverlayYMax != nil && !(*c.OverlayYMax > 0) {
		return fmt.Errorf("overlay_y_max must be positive, got %f", *c.OverlayYMax)
	}
	if !(c.GetVMax() > c.GetVMin()) {
		return fmt.Errorf("vmax (%f) must be greater than vmin (%f)", c.GetVMax(), c.GetVMin())
	}
	if c.Palette != nil && !knownPalette(*c.Palette) {
		return fmt.Errorf("unknown palette %q", *c.Palette)
	}
	if c.KDEPalette != nil && !knownPalette(*c.KDEPalette) {
		return fmt.Errorf("unknown kde_palette %q", *c.KDEPalette)
	}
	if c.KDEBandwidth != nil {
		if _, _, err := ParseBandwidth(*c.KDEBandwidth); err != nil {
			return err
		}
	}
	if c.KDEMeshPoints != nil && *c.KDEMeshPoints < 2 {
		return fmt.Errorf("kde_mesh_points must be at least 2, got %d", *c.KDEMeshPoints)
	}
	if c.ConditionalBandwidth != nil && !(*c.ConditionalBandwidth > 0) {
		return fmt.Errorf("conditional_bandwidth must be positive, got %f", *c.ConditionalBandwidth)
	}
	if c.MarginalBins != nil && *c.MarginalBins < 1 {
		return fmt.Errorf("marginal_bins must be positive, got %d", *c.MarginalBins)
	}
	if c.TrajectoryPoints != nil && *c.TrajectoryPoints < 0 {
		return fmt.Errorf("trajectory_points must be non-negative, got %d", *c.TrajectoryPoints)
	}
	if c.PanelSize != nil && !(*c.PanelSize > 0) {
		return fmt.Errorf("panel_size must be positive, got %f", *c.PanelSize)
	}
	return nil
}

// Palettes lists the palette names accepted by the config.
var Palettes = []string{"magma", "oranges", "blackbody", "kindlmann"}

func knownPalette(name string) bool {
	for _, p := range Palettes {
		if p == name {
			return true
		}
	}
	return false
}

// ParseBandwidth interprets a kde_bandwidth value. It returns the rule name
// ("scott" or "silverman") or, for a numeric value, "factor" and the value.
func ParseBandwidth(s string) (rule string, factor float64, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scott":
		return "scott", 0, nil
	case "silverman":
		return "silverman", 0, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !(f > 0) || math.IsInf(f, 0) {
		return "", 0, fmt.Errorf("kde_bandwidth must be scott, silverman or a positive number, got %q", s)
	}
	return "factor", f, nil
}

// Edges2D returns the edges for one axis of a 2D panel.
func (c *RenderConfig) Edges2D() (binning.EdgeSequence, error) {
	return binning.Symmetric(c.GetGrid2DLimit(), c.GetGrid2DPoints())
}

// Grid returns the shared 2D grid.
func (c *RenderConfig) Grid() (binning.Grid, error) {
	e, err := c.Edges2D()
	if err != nil {
		return binning.Grid{}, err
	}
	return binning.Grid{X: e, Y: e.Clone()}, nil
}

// Edges1D returns the edges of the 1D distribution overlay.
func (c *RenderConfig) Edges1D() (binning.EdgeSequence, error) {
	return binning.Symmetric(c.GetOverlay1DLimit(), c.GetOverlay1DBins()+1)
}

// GetGrid2DPoints returns the grid_2d_points value or the default.
func (c *RenderConfig) GetGrid2DPoints() int {
	if c.Grid2DPoints == nil {
		return binning.Default2DPoints
	}
	return *c.Grid2DPoints
}

// GetGrid2DLimit returns the grid_2d_limit value or the default.
func (c *RenderConfig) GetGrid2DLimit() float64 {
	if c.Grid2DLimit == nil {
		return binning.Default2DLimit
	}
	return *c.Grid2DLimit
}

// GetOverlay1DBins returns the overlay_1d_bins value or the default.
func (c *RenderConfig) GetOverlay1DBins() int {
	if c.Overlay1DBins == nil {
		return binning.Default1DBins
	}
	return *c.Overlay1DBins
}

// GetOverlay1DLimit returns the overlay_1d_limit value or the default.
func (c *RenderConfig) GetOverlay1DLimit() float64 {
	if c.Overlay1DLimit == nil {
		return binning.Default1DLimit
	}
	return *c.Overlay1DLimit
}

// GetOverlayYMax returns the overlay_y_max value or the default.
func (c *RenderConfig) GetOverlayYMax() float64 {
	if c.OverlayYMax == nil {
		return 1
	}
	return *c.OverlayYMax
}

// GetVMin returns the vmin value or the default.
func (c *RenderConfig) GetVMin() float64 {
	if c.VMin == nil {
		return 0
	}
	return *c.VMin
}

// GetVMax returns the vmax value or the default.
func (c *RenderConfig) GetVMax() float64 {
	if c.VMax == nil {
		return 0.15
	}
	return *c.VMax
}

// GetPalette returns the palette value or the default.
func (c *RenderConfig) GetPalette() string {
	if c.Palette == nil {
		return "magma"
	}
	return *c.Palette
}

// GetAxis returns the axis value or the default (decoration stripped).
func (c *RenderConfig) GetAxis() bool {
	if c.Axis == nil {
		return false
	}
	return *c.Axis
}

// GetKDEBandwidth returns the kde_bandwidth value or the default.
func (c *RenderConfig) GetKDEBandwidth() string {
	if c.KDEBandwidth == nil {
		return "scott"
	}
	return *c.KDEBandwidth
}

// GetKDEMeshPoints returns the kde_mesh_points value or the default.
func (c *RenderConfig) GetKDEMeshPoints() int {
	if c.KDEMeshPoints == nil {
		return 100
	}
	return *c.KDEMeshPoints
}

// GetKDEPalette returns the kde_palette value or the default.
func (c *RenderConfig) GetKDEPalette() string {
	if c.KDEPalette == nil {
		return "oranges"
	}
	return *c.KDEPalette
}

// GetConditionalBandwidth returns the conditional_bandwidth value or the default.
func (c *RenderConfig) GetConditionalBandwidth() float64 {
	if c.ConditionalBandwidth == nil {
		return 0.1
	}
	return *c.ConditionalBandwidth
}

// GetMarginalBins returns the marginal_bins value or the default.
func (c *RenderConfig) GetMarginalBins() int {
	if c.MarginalBins == nil {
		return 100
	}
	return *c.MarginalBins
}

// GetTrajectoryPoints returns the trajectory_points value or the default.
func (c *RenderConfig) GetTrajectoryPoints() int {
	if c.TrajectoryPoints == nil {
		return 20
	}
	return *c.TrajectoryPoints
}

// GetTrajectorySeed returns the trajectory_seed value or the default.
func (c *RenderConfig) GetTrajectorySeed() uint64 {
	if c.TrajectorySeed == nil {
		return 20
	}
	return *c.TrajectorySeed
}

// GetPanelSize returns the panel_size value (inches per panel) or the default.
func (c *RenderConfig) GetPanelSize() float64 {
	if c.PanelSize == nil {
		return 4
	}
	return *c.PanelSize
}
