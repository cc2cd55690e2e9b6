package differ

// Option is a functional option for configuring a Differ.
type Option func(*differ)

// WithTolerance treats point values closer than tolerance as equal.
func WithTolerance(tolerance float64) Option {
	return func(d *differ) {
		if tolerance >= 0 {
			d.tolerance = tolerance
		}
	}
}

// WithImputed controls whether imputed points take part in the comparison.
func WithImputed(enabled bool) Option {
	return func(d *differ) {
		d.imputed = enabled
	}
}
