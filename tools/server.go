package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const deviceIDDescription = "Device ID. Omit to use the only device on the account."

// NewServer wires the tool surface onto an MCP server. The transport is
// the caller's choice; cmd/gosauna serves it over stdio.
func NewServer(service *Service, version string) *server.MCPServer {
	s := server.NewMCPServer("Harvia Sauna", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("list_devices",
		mcp.WithDescription("List all Harvia sauna devices on the account with their full status."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reports, err := service.ListDevices(ctx)
		if err != nil {
			return toolError("failed to list devices", err), nil
		}
		return jsonResult(reports)
	})

	s.AddTool(mcp.NewTool("get_sauna_status",
		mcp.WithDescription("Get full sauna status (temperature, humidity, power, lights, etc.)."),
		mcp.WithString("device_id", mcp.Description(deviceIDDescription)),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := service.Status(ctx, req.GetString("device_id", ""))
		if err != nil {
			return toolError("failed to get status", err), nil
		}
		return jsonResult(report)
	})

	s.AddTool(mcp.NewTool("turn_sauna_on",
		mcp.WithDescription("Turn the sauna heater ON."),
		mcp.WithString("device_id", mcp.Description(deviceIDDescription)),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ack, err := service.SetPower(ctx, req.GetString("device_id", ""), true)
		if err != nil {
			return toolError("failed to turn sauna on", err), nil
		}
		return jsonResult(ack)
	})

	s.AddTool(mcp.NewTool("turn_sauna_off",
		mcp.WithDescription("Turn the sauna heater OFF."),
		mcp.WithString("device_id", mcp.Description(deviceIDDescription)),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ack, err := service.SetPower(ctx, req.GetString("device_id", ""), false)
		if err != nil {
			return toolError("failed to turn sauna off", err), nil
		}
		return jsonResult(ack)
	})

	s.AddTool(mcp.NewTool("set_temperature",
		mcp.WithDescription("Set the target sauna temperature."),
		mcp.WithNumber("temperature", mcp.Required(),
			mcp.Description("Target temperature in Fahrenheit (104-230°F).")),
		mcp.WithString("device_id", mcp.Description(deviceIDDescription)),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		temperature, err := req.RequireFloat("temperature")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ack, err := service.SetTemperature(ctx, req.GetString("device_id", ""), temperature)
		if err != nil {
			return toolError("failed to set temperature", err), nil
		}
		return jsonResult(ack)
	})

	s.AddTool(mcp.NewTool("toggle_lights",
		mcp.WithDescription("Turn the sauna lights on or off."),
		mcp.WithBoolean("on", mcp.Required(),
			mcp.Description("True to turn lights on, false to turn off.")),
		mcp.WithString("device_id", mcp.Description(deviceIDDescription)),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		on, err := req.RequireBool("on")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ack, err := service.SetLights(ctx, req.GetString("device_id", ""), on)
		if err != nil {
			return toolError("failed to toggle lights", err), nil
		}
		return jsonResult(ack)
	})

	s.AddTool(mcp.NewTool("toggle_steamer",
		mcp.WithDescription("Turn the sauna steamer on or off."),
		mcp.WithBoolean("on", mcp.Required(),
			mcp.Description("True to turn steamer on, false to turn off.")),
		mcp.WithString("device_id", mcp.Description(deviceIDDescription)),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		on, err := req.RequireBool("on")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ack, err := service.SetSteamer(ctx, req.GetString("device_id", ""), on)
		if err != nil {
			return toolError("failed to toggle steamer", err), nil
		}
		return jsonResult(ack)
	})

	s.AddTool(mcp.NewTool("toggle_fan",
		mcp.WithDescription("Turn the sauna fan on or off."),
		mcp.WithBoolean("on", mcp.Required(),
			mcp.Description("True to turn fan on, false to turn off.")),
		mcp.WithString("device_id", mcp.Description(deviceIDDescription)),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		on, err := req.RequireBool("on")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ack, err := service.SetFan(ctx, req.GetString("device_id", ""), on)
		if err != nil {
			return toolError("failed to toggle fan", err), nil
		}
		return jsonResult(ack)
	})

	s.AddTool(mcp.NewTool("set_humidity",
		mcp.WithDescription("Set the target humidity level."),
		mcp.WithNumber("humidity", mcp.Required(),
			mcp.Description("Target relative humidity percentage (0-140%).")),
		mcp.WithString("device_id", mcp.Description(deviceIDDescription)),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		humidity, err := req.RequireInt("humidity")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ack, err := service.SetHumidity(ctx, req.GetString("device_id", ""), humidity)
		if err != nil {
			return toolError("failed to set humidity", err), nil
		}
		return jsonResult(ack)
	})

	return s
}

func toolError(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
