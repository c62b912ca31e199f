package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	"github.com/joshp123/gosauna/harvia"
)

// callTool drives the MCP server through its JSON-RPC dispatcher, the
// same path the stdio transport uses.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (string, bool) {
	t.Helper()

	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  params,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	response := s.HandleMessage(context.Background(), raw)
	encoded, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var decoded struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if decoded.Error != nil {
		t.Fatalf("rpc error: %s", decoded.Error.Message)
	}
	if len(decoded.Result.Content) == 0 {
		t.Fatalf("no content in response: %s", encoded)
	}
	return decoded.Result.Content[0].Text, decoded.Result.IsError
}

func TestServerRegistersAllTools(t *testing.T) {
	fake := &fakeSauna{devices: oneDevice()}
	s := NewServer(testService(fake, Policy{}), "test")

	raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": "tools/list"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	response := s.HandleMessage(context.Background(), raw)
	encoded, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var decoded struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	registered := make(map[string]bool, len(decoded.Result.Tools))
	for _, tool := range decoded.Result.Tools {
		registered[tool.Name] = true
	}
	want := []string{
		"list_devices", "get_sauna_status",
		"turn_sauna_on", "turn_sauna_off", "set_temperature",
		"toggle_lights", "toggle_steamer", "toggle_fan", "set_humidity",
	}
	for _, name := range want {
		if !registered[name] {
			t.Fatalf("tool %s not registered, got %v", name, registered)
		}
	}
	if len(registered) != len(want) {
		t.Fatalf("unexpected tool count: %v", registered)
	}
}

func TestStatusTool(t *testing.T) {
	fake := &fakeSauna{
		devices: oneDevice(),
		states:  map[string]harvia.DeviceState{"sauna-1": fullState("sauna-1")},
	}
	s := NewServer(testService(fake, Policy{}), "test")

	text, isErr := callTool(t, s, "get_sauna_status", nil)
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var report StatusReport
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.DeviceID != "sauna-1" || report.Power != "on" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSetTemperatureTool(t *testing.T) {
	fake := &fakeSauna{devices: oneDevice()}
	s := NewServer(testService(fake, Policy{}), "test")

	text, isErr := callTool(t, s, "set_temperature", map[string]any{"temperature": 175.0})
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var ack Ack
	if err := json.Unmarshal([]byte(text), &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Status != "ok" || ack.TargetTemperatureC == nil || *ack.TargetTemperatureC != 79.4 {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if fake.calls[len(fake.calls)-1] != "temp sauna-1 79.4" {
		t.Fatalf("unexpected calls: %v", fake.calls)
	}

	text, isErr = callTool(t, s, "set_temperature", map[string]any{"temperature": 50.0})
	if !isErr {
		t.Fatalf("expected tool error for out-of-range setpoint")
	}
	if !strings.Contains(text, "failed to set temperature") {
		t.Fatalf("unexpected error text: %s", text)
	}
}

func TestPowerTools(t *testing.T) {
	fake := &fakeSauna{devices: oneDevice()}
	s := NewServer(testService(fake, Policy{}), "test")

	text, isErr := callTool(t, s, "turn_sauna_on", nil)
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var ack Ack
	if err := json.Unmarshal([]byte(text), &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Power != "on" {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	text, isErr = callTool(t, s, "turn_sauna_off", map[string]any{"device_id": "sauna-1"})
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if err := json.Unmarshal([]byte(text), &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Power != "off" || ack.DeviceID != "sauna-1" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}

func TestToolsRequireTheirArguments(t *testing.T) {
	fake := &fakeSauna{devices: oneDevice()}
	s := NewServer(testService(fake, Policy{}), "test")

	if _, isErr := callTool(t, s, "toggle_lights", nil); !isErr {
		t.Fatalf("toggle_lights without on should fail")
	}
	if _, isErr := callTool(t, s, "set_humidity", map[string]any{"device_id": "sauna-1"}); !isErr {
		t.Fatalf("set_humidity without humidity should fail")
	}
	if len(fake.calls) != 0 {
		t.Fatalf("missing arguments must not reach the client, got %v", fake.calls)
	}
}
