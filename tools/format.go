package tools

import (
	"github.com/joshp123/gosauna/harvia"
)

// StatusReport is the agent-facing view of one sauna. Optional readings
// are omitted from the JSON rather than reported as zero, so an agent
// never mistakes a missing sensor for a cold sauna.
type StatusReport struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Power    string `json:"power"`
	Lights   string `json:"lights"`
	Fan      string `json:"fan"`
	Steamer  string `json:"steamer"`

	TargetTemperatureF  *float64 `json:"target_temperature_f,omitempty"`
	TargetTemperatureC  *float64 `json:"target_temperature_c,omitempty"`
	CurrentTemperatureF *float64 `json:"current_temperature_f,omitempty"`
	CurrentTemperatureC *float64 `json:"current_temperature_c,omitempty"`
	HumidityPct         *float64 `json:"humidity_pct,omitempty"`
	TargetHumidityPct   *float64 `json:"target_humidity_pct,omitempty"`
	RemainingTimeMin    *float64 `json:"remaining_time_min,omitempty"`

	// Door is "open" or "closed", empty when the contact state is unknown.
	Door string `json:"door,omitempty"`
}

// Ack confirms a state change request. Only the fields the operation
// touched are set.
type Ack struct {
	Status   string `json:"status"`
	DeviceID string `json:"device_id"`

	Power   string `json:"power,omitempty"`
	Lights  string `json:"lights,omitempty"`
	Fan     string `json:"fan,omitempty"`
	Steamer string `json:"steamer,omitempty"`

	TargetTemperatureF *float64 `json:"target_temperature_f,omitempty"`
	TargetTemperatureC *float64 `json:"target_temperature_c,omitempty"`
	TargetHumidityPct  *int     `json:"target_humidity_pct,omitempty"`
}

const statusOK = "ok"

func onOffLabel(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// FormatStatus flattens a device snapshot into the report shape, adding
// Fahrenheit alongside each Celsius reading.
func FormatStatus(state harvia.DeviceState) StatusReport {
	report := StatusReport{
		DeviceID: state.DeviceID,
		Name:     state.Name,
		Power:    onOffLabel(state.PowerOn),
		Lights:   onOffLabel(state.LightsOn),
		Fan:      onOffLabel(state.FanOn),
		Steamer:  onOffLabel(state.SteamerOn),

		HumidityPct:       state.CurrentHumidity,
		TargetHumidityPct: state.TargetHumidity,
		RemainingTimeMin:  state.RemainingMinutes,
	}

	if state.TargetTemperatureC != nil {
		f := harvia.CelsiusToFahrenheit(*state.TargetTemperatureC)
		report.TargetTemperatureF = &f
		report.TargetTemperatureC = state.TargetTemperatureC
	}
	if state.CurrentTemperatureC != nil {
		f := harvia.CelsiusToFahrenheit(*state.CurrentTemperatureC)
		report.CurrentTemperatureF = &f
		report.CurrentTemperatureC = state.CurrentTemperatureC
	}
	if state.DoorOpen != nil {
		if *state.DoorOpen {
			report.Door = "open"
		} else {
			report.Door = "closed"
		}
	}
	return report
}
