package harvia

import (
	"encoding/json"
	"fmt"
)

// Device is one controller from the account's device tree.
type Device struct {
	// ID is the backend device identifier used by every other call.
	ID string
	// Meta is the raw tree item, kept for callers that need more than
	// the id.
	Meta json.RawMessage
}

// deviceTreeNode mirrors the getDeviceTree document: "i" is the item,
// "c" the children. Devices hang off the first root node.
type deviceTreeNode struct {
	I json.RawMessage  `json:"i"`
	C []deviceTreeNode `json:"c"`
}

func (n deviceTreeNode) device() (Device, error) {
	var item struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(n.I, &item); err != nil {
		return Device{}, fmt.Errorf("device tree item: %w", err)
	}
	if item.Name == "" {
		return Device{}, fmt.Errorf("device tree item missing name")
	}
	return Device{ID: item.Name, Meta: n.I}, nil
}

// flexBool tolerates the controller's mixed encodings: some firmware
// reports booleans, some 0/1 numbers.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flag: cannot decode %s", string(data))
	}
	*b = n != 0
	return nil
}

// rawDeviceData is the decoded shape shared by the reported state
// document and the latest data document. All fields are optional on the
// wire; pointers distinguish absent from zero.
type rawDeviceData struct {
	Active        *flexBool    `json:"active"`
	HeatOn        *flexBool    `json:"heatOn"`
	Light         *flexBool    `json:"light"`
	Fan           *flexBool    `json:"fan"`
	SteamEn       *flexBool    `json:"steamEn"`
	SteamOn       *flexBool    `json:"steamOn"`
	TargetTemp    *float64     `json:"targetTemp"`
	Temperature   *float64     `json:"temperature"`
	Humidity      *float64     `json:"humidity"`
	TargetRh      *float64     `json:"targetRh"`
	RemainingTime *float64     `json:"remainingTime"`
	DisplayName   *string      `json:"displayName"`
	StatusCodes   *StatusCodes `json:"statusCodes"`
	Timestamp     *string      `json:"timestamp"`
}

// merge overlays fields present in latest on top of base, field by field.
func (d rawDeviceData) merge(latest rawDeviceData) rawDeviceData {
	if latest.Active != nil {
		d.Active = latest.Active
	}
	if latest.HeatOn != nil {
		d.HeatOn = latest.HeatOn
	}
	if latest.Light != nil {
		d.Light = latest.Light
	}
	if latest.Fan != nil {
		d.Fan = latest.Fan
	}
	if latest.SteamEn != nil {
		d.SteamEn = latest.SteamEn
	}
	if latest.SteamOn != nil {
		d.SteamOn = latest.SteamOn
	}
	if latest.TargetTemp != nil {
		d.TargetTemp = latest.TargetTemp
	}
	if latest.Temperature != nil {
		d.Temperature = latest.Temperature
	}
	if latest.Humidity != nil {
		d.Humidity = latest.Humidity
	}
	if latest.TargetRh != nil {
		d.TargetRh = latest.TargetRh
	}
	if latest.RemainingTime != nil {
		d.RemainingTime = latest.RemainingTime
	}
	if latest.DisplayName != nil {
		d.DisplayName = latest.DisplayName
	}
	if latest.StatusCodes != nil {
		d.StatusCodes = latest.StatusCodes
	}
	if latest.Timestamp != nil {
		d.Timestamp = latest.Timestamp
	}
	return d
}

func set(b *flexBool) bool {
	return b != nil && bool(*b)
}

// DeviceState is one poll's view of a sauna: the reported state document
// overlaid with the latest data document (latest wins). Pointer fields
// are nil when the controller did not report the value.
type DeviceState struct {
	DeviceID string
	// Name is the display name, empty when the controller has none.
	Name string
	// PowerOn is true when the controller is active or the heater is on.
	PowerOn   bool
	LightsOn  bool
	FanOn     bool
	SteamerOn bool

	TargetTemperatureC  *float64
	CurrentTemperatureC *float64
	CurrentHumidity     *float64
	TargetHumidity      *float64
	RemainingMinutes    *float64

	// StatusCodes is the raw positional status field, empty when absent.
	StatusCodes StatusCodes
	// DoorOpen is nil when the door contact state cannot be decoded.
	DoorOpen *bool

	// Timestamp is the backend timestamp of the latest data document.
	Timestamp string
}

func newDeviceState(deviceID string, data rawDeviceData) DeviceState {
	state := DeviceState{
		DeviceID:            deviceID,
		PowerOn:             set(data.Active) || set(data.HeatOn),
		LightsOn:            set(data.Light),
		FanOn:               set(data.Fan),
		SteamerOn:           set(data.SteamEn) || set(data.SteamOn),
		TargetTemperatureC:  data.TargetTemp,
		CurrentTemperatureC: data.Temperature,
		CurrentHumidity:     data.Humidity,
		TargetHumidity:      data.TargetRh,
		RemainingMinutes:    data.RemainingTime,
	}
	if data.DisplayName != nil {
		state.Name = *data.DisplayName
	}
	if data.StatusCodes != nil {
		state.StatusCodes = *data.StatusCodes
		state.DoorOpen = data.StatusCodes.DoorOpen()
	}
	if data.Timestamp != nil {
		state.Timestamp = *data.Timestamp
	}
	return state
}

// StatePatch is a partial desired-state document for requestStateChange.
// Only non-nil fields are sent. The backend acknowledges the request; it
// does not confirm the physical transition.
type StatePatch struct {
	Active     *int     `json:"active,omitempty"`
	TargetTemp *float64 `json:"targetTemp,omitempty"`
	Light      *int     `json:"light,omitempty"`
	SteamEn    *int     `json:"steamEn,omitempty"`
	Fan        *int     `json:"fan,omitempty"`
	TargetRh   *int     `json:"targetRh,omitempty"`
}

func onOff(on bool) *int {
	v := 0
	if on {
		v = 1
	}
	return &v
}
