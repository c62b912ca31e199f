// Package harvia is a credentialed client for the MyHarvia cloud backend
// that fronts Harvia Xenio WiFi sauna controllers. It discovers the
// backend's per-function endpoints, exchanges the account credentials via
// Cognito, and speaks the backend's GraphQL contract.
package harvia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// The backend pins operation names to "Query" and "Mutation"; the
// documents below are sent verbatim.
const (
	deviceTreeQuery = "query Query {\n  getDeviceTree\n}\n"

	deviceStateQuery = "query Query($deviceId: ID!) {\n" +
		"  getDeviceState(deviceId: $deviceId) {\n" +
		"    desired\n    reported\n    timestamp\n    __typename\n" +
		"  }\n}\n"

	latestDataQuery = "query Query($deviceId: String!) {\n" +
		"  getLatestData(deviceId: $deviceId) {\n" +
		"    deviceId\n    timestamp\n    sessionId\n    type\n    data\n" +
		"    __typename\n" +
		"  }\n}\n"

	stateChangeMutation = "mutation Mutation($deviceId: ID!, $state: AWSJSON!, $getFullState: Boolean) {\n" +
		"  requestStateChange(deviceId: $deviceId, state: $state, getFullState: $getFullState)\n" +
		"}\n"
)

// Client talks to the MyHarvia cloud API. One instance per process; safe
// for concurrent use. The client never retries on its own, so callers
// decide their own retry policy.
type Client struct {
	httpClient *http.Client
	endpoints  *endpointResolver
	auth       *authenticator
}

// NewClient validates the configuration and builds a client. No network
// traffic happens until the first operation.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	httpClient := &http.Client{Timeout: cfg.Timeout}
	resolver := newEndpointResolver(cfg.BaseURL, httpClient)

	return &Client{
		httpClient: httpClient,
		endpoints:  resolver,
		auth:       newAuthenticator(cfg, resolver, httpClient),
	}, nil
}

// Close releases the underlying HTTP connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Endpoint resolves one discovery document. Useful for debugging which
// backend hosts the account is routed to; the core operations resolve
// what they need on their own.
func (c *Client) Endpoint(ctx context.Context, kind EndpointKind) (Endpoint, error) {
	return c.endpoints.Resolve(ctx, kind)
}

// Devices lists the controllers on the account, in backend order.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	raw, err := c.post(ctx, EndpointDevice, gqlRequest{
		OperationName: "Query",
		Variables:     map[string]any{},
		Query:         deviceTreeQuery,
	}, "getDeviceTree")
	if err != nil {
		return nil, err
	}

	var tree []deviceTreeNode
	if err := decodeAWSJSON(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode device tree: %w", err)
	}
	if len(tree) == 0 {
		return nil, nil
	}

	devices := make([]Device, 0, len(tree[0].C))
	for _, node := range tree[0].C {
		device, err := node.device()
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// ResolveDeviceID fills in an omitted device id when the account has
// exactly one controller. With zero or several the caller must pick one.
func (c *Client) ResolveDeviceID(ctx context.Context, deviceID string) (string, error) {
	if deviceID != "" {
		return deviceID, nil
	}
	devices, err := c.Devices(ctx)
	if err != nil {
		return "", err
	}
	if len(devices) != 1 {
		ids := make([]string, 0, len(devices))
		for _, d := range devices {
			ids = append(ids, d.ID)
		}
		return "", AmbiguousDeviceError{IDs: ids}
	}
	return devices[0].ID, nil
}

// DeviceState fetches the reported state and the latest data documents
// and merges them, latest winning, into one snapshot. An empty deviceID
// auto-resolves. Nothing is cached between calls.
func (c *Client) DeviceState(ctx context.Context, deviceID string) (DeviceState, error) {
	deviceID, err := c.ResolveDeviceID(ctx, deviceID)
	if err != nil {
		return DeviceState{}, err
	}

	stateRaw, err := c.post(ctx, EndpointDevice, gqlRequest{
		OperationName: "Query",
		Variables:     map[string]any{"deviceId": deviceID},
		Query:         deviceStateQuery,
	}, "getDeviceState")
	if err != nil {
		return DeviceState{}, err
	}

	var stateItem struct {
		Reported json.RawMessage `json:"reported"`
	}
	if len(stateRaw) > 0 {
		if err := json.Unmarshal(stateRaw, &stateItem); err != nil {
			return DeviceState{}, fmt.Errorf("decode device state: %w", err)
		}
	}
	var reported rawDeviceData
	if err := decodeAWSJSON(stateItem.Reported, &reported); err != nil {
		return DeviceState{}, fmt.Errorf("decode reported state: %w", err)
	}

	latest, err := c.latestData(ctx, deviceID)
	if err != nil {
		return DeviceState{}, err
	}

	return newDeviceState(deviceID, reported.merge(latest)), nil
}

func (c *Client) latestData(ctx context.Context, deviceID string) (rawDeviceData, error) {
	raw, err := c.post(ctx, EndpointData, gqlRequest{
		OperationName: "Query",
		Variables:     map[string]any{"deviceId": deviceID},
		Query:         latestDataQuery,
	}, "getLatestData")
	if err != nil {
		return rawDeviceData{}, err
	}

	// Controllers with no session yet have no latest data document.
	var item struct {
		Timestamp *string         `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &item); err != nil {
			return rawDeviceData{}, fmt.Errorf("decode latest data: %w", err)
		}
	}

	var data rawDeviceData
	if err := decodeAWSJSON(item.Data, &data); err != nil {
		return rawDeviceData{}, fmt.Errorf("decode latest data: %w", err)
	}
	if item.Timestamp != nil {
		data.Timestamp = item.Timestamp
	}
	return data, nil
}

// RequestStateChange sends a partial desired-state patch. The backend's
// acknowledgement means the request was accepted, not that the device has
// transitioned; poll DeviceState to observe convergence.
func (c *Client) RequestStateChange(ctx context.Context, deviceID string, patch StatePatch) error {
	deviceID, err := c.ResolveDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}

	state, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	_, err = c.post(ctx, EndpointDevice, gqlRequest{
		OperationName: "Mutation",
		Variables: map[string]any{
			"deviceId":     deviceID,
			"state":        string(state),
			"getFullState": false,
		},
		Query: stateChangeMutation,
	}, "requestStateChange")
	return err
}

// SetPower turns the heater on or off.
func (c *Client) SetPower(ctx context.Context, deviceID string, on bool) error {
	return c.RequestStateChange(ctx, deviceID, StatePatch{Active: onOff(on)})
}

// SetTargetTemperature sets the target temperature in Celsius.
func (c *Client) SetTargetTemperature(ctx context.Context, deviceID string, celsius float64) error {
	if err := ValidateTemperatureC(celsius); err != nil {
		return err
	}
	return c.RequestStateChange(ctx, deviceID, StatePatch{TargetTemp: &celsius})
}

// SetLights turns the cabin lights on or off.
func (c *Client) SetLights(ctx context.Context, deviceID string, on bool) error {
	return c.RequestStateChange(ctx, deviceID, StatePatch{Light: onOff(on)})
}

// SetSteamer turns the steamer on or off.
func (c *Client) SetSteamer(ctx context.Context, deviceID string, on bool) error {
	return c.RequestStateChange(ctx, deviceID, StatePatch{SteamEn: onOff(on)})
}

// SetFan turns the ventilation fan on or off.
func (c *Client) SetFan(ctx context.Context, deviceID string, on bool) error {
	return c.RequestStateChange(ctx, deviceID, StatePatch{Fan: onOff(on)})
}

// SetTargetHumidity sets the humidity setpoint on the controller's 0-140
// scale.
func (c *Client) SetTargetHumidity(ctx context.Context, deviceID string, pct int) error {
	if err := ValidateHumidity(pct); err != nil {
		return err
	}
	return c.RequestStateChange(ctx, deviceID, StatePatch{TargetRh: &pct})
}

type gqlRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

// post issues one GraphQL call: resolve the endpoint, ensure a fresh id
// token, send, unwrap the response envelope. The backend wants the raw id
// token in the authorization header, no scheme prefix.
func (c *Client) post(ctx context.Context, kind EndpointKind, req gqlRequest, field string) (json.RawMessage, error) {
	ep, err := c.endpoints.Resolve(ctx, kind)
	if err != nil {
		requestFailure.WithLabelValues(field).Inc()
		return nil, err
	}
	token, err := c.auth.IDToken(ctx)
	if err != nil {
		requestFailure.WithLabelValues(field).Inc()
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("authorization", token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		requestFailure.WithLabelValues(field).Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		requestFailure.WithLabelValues(field).Inc()
		return nil, BackendError{
			Type:    fmt.Sprintf("HTTP%d", resp.StatusCode),
			Message: strings.TrimSpace(string(data)),
		}
	}

	var envelope struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []struct {
			ErrorType string `json:"errorType"`
			Message   string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		requestFailure.WithLabelValues(field).Inc()
		return nil, fmt.Errorf("decode %s response: %w", field, err)
	}
	if len(envelope.Errors) > 0 {
		requestFailure.WithLabelValues(field).Inc()
		return nil, BackendError{
			Type:    envelope.Errors[0].ErrorType,
			Message: envelope.Errors[0].Message,
		}
	}

	requestSuccess.WithLabelValues(field).Inc()
	return envelope.Data[field], nil
}

// decodeAWSJSON unwraps an AWSJSON field: the payload arrives as a JSON
// document encoded inside a JSON string. Null and absent decode to
// nothing; a plain document is accepted as-is.
func decodeAWSJSON(raw json.RawMessage, out any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if strings.TrimSpace(encoded) == "" {
			return nil
		}
		return json.Unmarshal([]byte(encoded), out)
	}
	return json.Unmarshal(raw, out)
}
