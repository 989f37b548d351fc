package scan

// Filter is a color transform applied before decoding.
type Filter int

const (
	// FilterNone passes pixels through unchanged.
	FilterNone Filter = iota
	// FilterGrayContrast converts to grayscale and doubles contrast around the midpoint.
	FilterGrayContrast
	// FilterInvert replaces each color channel v with 255-v.
	FilterInvert
)

func (f Filter) String() string {
	switch f {
	case FilterGrayContrast:
		return "gray-contrast"
	case FilterInvert:
		return "invert"
	default:
		return "none"
	}
}

// Strategy describes one preprocessing attempt. Strategies are values and
// are never modified once defined.
type Strategy struct {
	Name        string
	Filter      Filter
	ScaleFactor float64 // 0 is treated as 1.0
	Binarize    bool
}

// Strategy names, in pipeline order.
const (
	StrategyNormal   = "Normal"
	StrategyContrast = "Contrast"
	StrategyInvert   = "Invert"
	StrategyScale2x  = "Scale2x"
	StrategyBinarize = "Binarize"
)

// ContrastFactor is the multiplicative contrast applied by FilterGrayContrast.
const ContrastFactor = 2.0

// BinarizeThreshold is the luminance above which a pixel becomes white.
const BinarizeThreshold = 128

// DefaultStrategies returns the fixed fallback sequence. Each call returns a
// fresh slice so callers cannot alter the package defaults.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyNormal, ScaleFactor: 1.0},
		{Name: StrategyContrast, Filter: FilterGrayContrast, ScaleFactor: 1.0},
		{Name: StrategyInvert, Filter: FilterInvert, ScaleFactor: 1.0},
		{Name: StrategyScale2x, ScaleFactor: 2.0},
		{Name: StrategyBinarize, ScaleFactor: 1.0, Binarize: true},
	}
}

// StrategiesByName selects default strategies by name, keeping the default
// order. Unknown names are reported in the second return value.
func StrategiesByName(names []string) ([]Strategy, []string) {
	if len(names) == 0 {
		return DefaultStrategies(), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Strategy
	for _, s := range DefaultStrategies() {
		if want[s.Name] {
			out = append(out, s)
			delete(want, s.Name)
		}
	}
	var unknown []string
	for _, n := range names {
		if want[n] {
			unknown = append(unknown, n)
			delete(want, n)
		}
	}
	return out, unknown
}

func (s Strategy) scale() float64 {
	if s.ScaleFactor <= 0 {
		return 1.0
	}
	return s.ScaleFactor
}
