package harvia

import (
	"fmt"
	"math"
)

// Controller limits. The backend speaks Celsius; the Fahrenheit bounds are
// the same range as advertised on the panel.
const (
	MinTemperatureC = 40.0
	MaxTemperatureC = 110.0
	MinTemperatureF = 104.0
	MaxTemperatureF = 230.0

	MinHumidity = 0
	MaxHumidity = 140
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// CelsiusToFahrenheit converts and rounds to one decimal place.
func CelsiusToFahrenheit(c float64) float64 {
	return round1(c*9/5 + 32)
}

// FahrenheitToCelsius converts and rounds to one decimal place, so a
// setpoint given in Fahrenheit keeps sub-degree precision on the wire.
func FahrenheitToCelsius(f float64) float64 {
	return round1((f - 32) * 5 / 9)
}

// ValidateTemperatureF checks a Fahrenheit setpoint against the
// controller range before any conversion happens.
func ValidateTemperatureF(f float64) error {
	if f < MinTemperatureF || f > MaxTemperatureF {
		return ValidationError{
			Param:   "temperature",
			Message: fmt.Sprintf("%.1f°F outside %g-%g°F", f, MinTemperatureF, MaxTemperatureF),
		}
	}
	return nil
}

// ValidateTemperatureC checks a Celsius setpoint against the controller
// range.
func ValidateTemperatureC(c float64) error {
	if c < MinTemperatureC || c > MaxTemperatureC {
		return ValidationError{
			Param:   "temperature",
			Message: fmt.Sprintf("%.1f°C outside %g-%g°C", c, MinTemperatureC, MaxTemperatureC),
		}
	}
	return nil
}

// ValidateHumidity checks a humidity setpoint. The scale is the
// controller's own 0-140 range, not a plain percentage.
func ValidateHumidity(pct int) error {
	if pct < MinHumidity || pct > MaxHumidity {
		return ValidationError{
			Param:   "humidity",
			Message: fmt.Sprintf("%d outside %d-%d", pct, MinHumidity, MaxHumidity),
		}
	}
	return nil
}
