package layout

import (
	"go.uber.org/zap"

	"github.com/ByLCY/vellum/visual"
)

// DefaultRunMergeGapEm 相邻同样式文本行的最大合并间距（以字号为单位）。
const DefaultRunMergeGapEm = 0.3

// BuildOptions 配置一次提取所需的依赖与策略。
type BuildOptions struct {
	// Geometry answers text range queries. When nil the tree's own node boxes
	// are used, which treats every text leaf as a single line.
	Geometry visual.Geometry
	// Assets resolves <img> and url() references. Without it images are skipped with a warning.
	Assets AssetLoader
	Logger *zap.Logger

	Title        string
	SinglePage   bool
	MaxPages     int
	MarginPx     float64
	GradientMode GradientMode
	// RunMergeGapEm joins adjacent runs of identical style up to this gap;
	// negative disables merging.
	RunMergeGapEm float64
	MaxImagePx    int
}

// DefaultBuildOptions returns the options used when nothing is configured.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MarginPx:      12,
		GradientMode:  GradientSolid,
		RunMergeGapEm: DefaultRunMergeGapEm,
		MaxImagePx:    4096,
	}
}
