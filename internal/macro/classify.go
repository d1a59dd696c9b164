package macro

// Classify maps an aggregated value to a status. A value sitting exactly on
// a bound takes the better of the two adjoining statuses.
func Classify(cfg IndicatorConfig, value float64, ok bool) Status {
	if !ok {
		return StatusMissing
	}

	caution, warning := cfg.Thresholds.Caution, cfg.Thresholds.Warning
	switch cfg.Direction {
	case HigherIsWorse:
		switch {
		case value <= caution:
			return StatusHealthy
		case value <= warning:
			return StatusCaution
		default:
			return StatusWarning
		}
	case LowerIsWorse:
		switch {
		case value >= caution:
			return StatusHealthy
		case value >= warning:
			return StatusCaution
		default:
			return StatusWarning
		}
	default:
		return StatusMissing
	}
}
