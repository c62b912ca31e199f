package harvia

import (
	"encoding/json"
	"fmt"
)

// StatusCodes is the compact positional status field the controller
// reports, e.g. "19045". Controllers send it as either a JSON string or a
// bare number. Only the door contact position is decoded here; the raw
// value stays available for callers that know more positions.
type StatusCodes string

const doorOpenDigit = '9'

func (s *StatusCodes) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = StatusCodes(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("statusCodes: cannot decode %s", string(data))
	}
	*s = StatusCodes(num.String())
	return nil
}

// DoorOpen decodes the door contact from the second position. It returns
// nil when the codes are missing, too short, or malformed: an unknown door
// is reported as unknown, never as closed.
func (s StatusCodes) DoorOpen() *bool {
	if len(s) < 2 {
		return nil
	}
	digit := s[1]
	if digit < '0' || digit > '9' {
		return nil
	}
	open := digit == doorOpenDigit
	return &open
}
