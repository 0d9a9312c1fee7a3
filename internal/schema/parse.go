package schema

import (
	"strconv"
	"strings"
)

// ParseMetricValue coerces a raw cell into a number per the metric's declared
// type. Percent values are normalized to [0, 1], durations to seconds.
// Returns false when the value is not parseable at all.
func ParseMetricValue(raw string, typ MetricType) (float64, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, true
	}

	switch typ {
	case MetricPercent:
		value = strings.TrimSuffix(value, "%")
		n, err := strconv.ParseFloat(stripThousands(value), 64)
		if err != nil {
			return 0, false
		}
		return n / 100, true

	case MetricDuration:
		if strings.Contains(value, ":") {
			return parseClockDuration(value)
		}
		n, err := strconv.ParseFloat(stripThousands(value), 64)
		if err != nil {
			return 0, false
		}
		return n, true

	case MetricCurrency:
		value = strings.TrimLeft(value, "$€£¥ ")
		n, err := strconv.ParseFloat(stripThousands(value), 64)
		if err != nil {
			return 0, false
		}
		return n, true

	default: // count, decimal
		n, err := strconv.ParseFloat(stripThousands(strings.TrimSuffix(value, "%")), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
}

// stripThousands removes grouping separators ("1,200" and "1 200").
func stripThousands(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', ' ':
			return -1
		case ' ':
			return -1
		}
		return r
	}, value)
}

// parseClockDuration converts "hh:mm:ss" or "mm:ss" to seconds.
func parseClockDuration(value string) (float64, bool) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	var total float64
	for _, part := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}
