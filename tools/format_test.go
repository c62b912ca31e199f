package tools

import (
	"encoding/json"
	"testing"

	"github.com/joshp123/gosauna/harvia"
)

func TestFormatStatusAddsFahrenheit(t *testing.T) {
	report := FormatStatus(fullState("sauna-1"))

	if report.Power != "on" || report.Lights != "on" || report.Fan != "off" || report.Steamer != "off" {
		t.Fatalf("unexpected switch states: %+v", report)
	}
	if report.TargetTemperatureF == nil || *report.TargetTemperatureF != 174.9 {
		t.Fatalf("unexpected target fahrenheit: %v", report.TargetTemperatureF)
	}
	if report.TargetTemperatureC == nil || *report.TargetTemperatureC != 79.4 {
		t.Fatalf("unexpected target celsius: %v", report.TargetTemperatureC)
	}
	if report.CurrentTemperatureF == nil || *report.CurrentTemperatureF != 144.5 {
		t.Fatalf("unexpected current fahrenheit: %v", report.CurrentTemperatureF)
	}
	if report.HumidityPct == nil || *report.HumidityPct != 12 {
		t.Fatalf("unexpected humidity: %v", report.HumidityPct)
	}
	if report.RemainingTimeMin == nil || *report.RemainingTimeMin != 25 {
		t.Fatalf("unexpected remaining time: %v", report.RemainingTimeMin)
	}
	if report.Door != "closed" {
		t.Fatalf("unexpected door: %q", report.Door)
	}
}

func TestFormatStatusOmitsUnknownReadings(t *testing.T) {
	report := FormatStatus(harvia.DeviceState{DeviceID: "sauna-1"})

	encoded, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}

	for _, key := range []string{
		"target_temperature_f", "target_temperature_c",
		"current_temperature_f", "current_temperature_c",
		"humidity_pct", "target_humidity_pct", "remaining_time_min", "door",
	} {
		if _, ok := doc[key]; ok {
			t.Fatalf("%s should be omitted when unknown", key)
		}
	}
	if doc["power"] != "off" || doc["device_id"] != "sauna-1" {
		t.Fatalf("unexpected report: %v", doc)
	}
}
