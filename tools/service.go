// Package tools exposes sauna operations as agent tools over the Model
// Context Protocol. The Service layer validates input, resolves device
// ids and applies the retry policy; the MCP layer only shapes requests
// and responses.
package tools

import (
	"context"
	"time"

	"github.com/joshp123/gosauna/harvia"
	"github.com/joshp123/gosauna/internal/logger"
)

// SaunaClient is the slice of the harvia client the tools need.
type SaunaClient interface {
	Devices(ctx context.Context) ([]harvia.Device, error)
	ResolveDeviceID(ctx context.Context, deviceID string) (string, error)
	DeviceState(ctx context.Context, deviceID string) (harvia.DeviceState, error)
	SetPower(ctx context.Context, deviceID string, on bool) error
	SetLights(ctx context.Context, deviceID string, on bool) error
	SetSteamer(ctx context.Context, deviceID string, on bool) error
	SetFan(ctx context.Context, deviceID string, on bool) error
	SetTargetTemperature(ctx context.Context, deviceID string, celsius float64) error
	SetTargetHumidity(ctx context.Context, deviceID string, pct int) error
}

// Service implements the tool operations against a sauna client.
type Service struct {
	client SaunaClient
	policy Policy
	log    *logger.Logger
}

func NewService(client SaunaClient, policy Policy, log *logger.Logger) *Service {
	return &Service{client: client, policy: policy, log: log}
}

// ListDevices reports the full status of every controller on the
// account.
func (s *Service) ListDevices(ctx context.Context) ([]StatusReport, error) {
	var reports []StatusReport
	err := s.run(ctx, "list_devices", func(ctx context.Context) error {
		devices, err := s.client.Devices(ctx)
		if err != nil {
			return err
		}
		reports = reports[:0]
		for _, device := range devices {
			state, err := s.client.DeviceState(ctx, device.ID)
			if err != nil {
				return err
			}
			reports = append(reports, FormatStatus(state))
		}
		return nil
	})
	return reports, err
}

// Status reports one controller's merged state. An empty deviceID picks
// the account's only device.
func (s *Service) Status(ctx context.Context, deviceID string) (StatusReport, error) {
	var report StatusReport
	err := s.run(ctx, "get_status", func(ctx context.Context) error {
		state, err := s.client.DeviceState(ctx, deviceID)
		if err != nil {
			return err
		}
		report = FormatStatus(state)
		return nil
	})
	return report, err
}

// SetPower turns the heater on or off.
func (s *Service) SetPower(ctx context.Context, deviceID string, on bool) (Ack, error) {
	var ack Ack
	err := s.run(ctx, "set_power", func(ctx context.Context) error {
		id, err := s.client.ResolveDeviceID(ctx, deviceID)
		if err != nil {
			return err
		}
		if err := s.client.SetPower(ctx, id, on); err != nil {
			return err
		}
		ack = Ack{Status: statusOK, DeviceID: id, Power: onOffLabel(on)}
		return nil
	})
	return ack, err
}

// SetTemperature takes a Fahrenheit setpoint, checks it against the
// panel range, then sends the Celsius equivalent. The range check runs
// on the Fahrenheit value: a just-under-range input can round into a
// valid Celsius value, and that must still be rejected.
func (s *Service) SetTemperature(ctx context.Context, deviceID string, fahrenheit float64) (Ack, error) {
	if err := harvia.ValidateTemperatureF(fahrenheit); err != nil {
		return Ack{}, err
	}
	celsius := harvia.FahrenheitToCelsius(fahrenheit)

	var ack Ack
	err := s.run(ctx, "set_temperature", func(ctx context.Context) error {
		id, err := s.client.ResolveDeviceID(ctx, deviceID)
		if err != nil {
			return err
		}
		if err := s.client.SetTargetTemperature(ctx, id, celsius); err != nil {
			return err
		}
		ack = Ack{
			Status:             statusOK,
			DeviceID:           id,
			TargetTemperatureF: &fahrenheit,
			TargetTemperatureC: &celsius,
		}
		return nil
	})
	return ack, err
}

// SetLights turns the cabin lights on or off.
func (s *Service) SetLights(ctx context.Context, deviceID string, on bool) (Ack, error) {
	var ack Ack
	err := s.run(ctx, "set_lights", func(ctx context.Context) error {
		id, err := s.client.ResolveDeviceID(ctx, deviceID)
		if err != nil {
			return err
		}
		if err := s.client.SetLights(ctx, id, on); err != nil {
			return err
		}
		ack = Ack{Status: statusOK, DeviceID: id, Lights: onOffLabel(on)}
		return nil
	})
	return ack, err
}

// SetSteamer turns the steamer on or off.
func (s *Service) SetSteamer(ctx context.Context, deviceID string, on bool) (Ack, error) {
	var ack Ack
	err := s.run(ctx, "set_steamer", func(ctx context.Context) error {
		id, err := s.client.ResolveDeviceID(ctx, deviceID)
		if err != nil {
			return err
		}
		if err := s.client.SetSteamer(ctx, id, on); err != nil {
			return err
		}
		ack = Ack{Status: statusOK, DeviceID: id, Steamer: onOffLabel(on)}
		return nil
	})
	return ack, err
}

// SetFan turns the ventilation fan on or off.
func (s *Service) SetFan(ctx context.Context, deviceID string, on bool) (Ack, error) {
	var ack Ack
	err := s.run(ctx, "set_fan", func(ctx context.Context) error {
		id, err := s.client.ResolveDeviceID(ctx, deviceID)
		if err != nil {
			return err
		}
		if err := s.client.SetFan(ctx, id, on); err != nil {
			return err
		}
		ack = Ack{Status: statusOK, DeviceID: id, Fan: onOffLabel(on)}
		return nil
	})
	return ack, err
}

// SetHumidity sets the target humidity on the controller's 0-140 scale.
func (s *Service) SetHumidity(ctx context.Context, deviceID string, humidity int) (Ack, error) {
	if err := harvia.ValidateHumidity(humidity); err != nil {
		return Ack{}, err
	}

	var ack Ack
	err := s.run(ctx, "set_humidity", func(ctx context.Context) error {
		id, err := s.client.ResolveDeviceID(ctx, deviceID)
		if err != nil {
			return err
		}
		if err := s.client.SetTargetHumidity(ctx, id, humidity); err != nil {
			return err
		}
		ack = Ack{Status: statusOK, DeviceID: id, TargetHumidityPct: &humidity}
		return nil
	})
	return ack, err
}

func (s *Service) run(ctx context.Context, tool string, fn func(context.Context) error) error {
	start := time.Now()
	if err := s.policy.retry(ctx, fn); err != nil {
		s.log.Errorw("tool_failed", "tool", tool, "elapsed", time.Since(start), "err", err)
		return err
	}
	s.log.Debugw("tool_ok", "tool", tool, "elapsed", time.Since(start))
	return nil
}
