package pricing

// Defaults used when a Config field is left at zero.
const (
	DefaultHemAllowance  = 0.10
	DefaultTallHeight    = 3.50
	DefaultMarkupPercent = 100.0
)

// Config carries the business constants of the calculation.
type Config struct {
	// HemAllowance is the seam/hem margin in meters added to every drop.
	HemAllowance float64
	// TallHeight is the inclusive height at which the tall assembly tier applies.
	TallHeight float64
	// DefaultMarkupPercent replaces a missing or non-positive line markup.
	DefaultMarkupPercent float64
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		HemAllowance:         DefaultHemAllowance,
		TallHeight:           DefaultTallHeight,
		DefaultMarkupPercent: DefaultMarkupPercent,
	}
}

func (c Config) withDefaults() Config {
	if c.HemAllowance < 0 {
		c.HemAllowance = 0
	}
	if c.TallHeight <= 0 {
		c.TallHeight = DefaultTallHeight
	}
	if c.DefaultMarkupPercent <= 0 {
		c.DefaultMarkupPercent = DefaultMarkupPercent
	}
	return c
}
