package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joshp123/gosauna/harvia"
	"github.com/joshp123/gosauna/tools"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	command := os.Args[1]
	switch command {
	case "devices", "status", "on", "off", "set-temp", "lights", "steamer", "fan", "set-humidity", "endpoints":
	default:
		usage()
		os.Exit(2)
	}

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	jsonOutput := flags.Bool("json", false, "print JSON instead of text")
	deviceID := flags.String("device", "", "device id (defaults to the account's only device)")
	_ = flags.Parse(os.Args[2:])
	args := flags.Args()
	out := outputMode{json: *jsonOutput}

	client, err := newClient()
	if err != nil {
		fatal("setup", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch command {
	case "devices":
		devicesCmd(ctx, client, out)
	case "status":
		statusCmd(ctx, client, *deviceID, out)
	case "on":
		powerCmd(ctx, client, *deviceID, true, out)
	case "off":
		powerCmd(ctx, client, *deviceID, false, out)
	case "set-temp":
		setTempCmd(ctx, client, *deviceID, args, out)
	case "lights":
		switchCmd(ctx, client, *deviceID, "lights", client.SetLights, args, out)
	case "steamer":
		switchCmd(ctx, client, *deviceID, "steamer", client.SetSteamer, args, out)
	case "fan":
		switchCmd(ctx, client, *deviceID, "fan", client.SetFan, args, out)
	case "set-humidity":
		setHumidityCmd(ctx, client, *deviceID, args, out)
	case "endpoints":
		endpointsCmd(ctx, client, out)
	}
}

func newClient() (*harvia.Client, error) {
	username := os.Getenv("HARVIA_USERNAME")
	password := os.Getenv("HARVIA_PASSWORD")
	if username == "" || password == "" {
		return nil, fmt.Errorf("HARVIA_USERNAME and HARVIA_PASSWORD environment variables are required")
	}
	return harvia.NewClient(harvia.Config{
		Username: username,
		Password: password,
		BaseURL:  os.Getenv("HARVIA_BASE_URL"),
	})
}

func devicesCmd(ctx context.Context, client *harvia.Client, out outputMode) {
	devices, err := client.Devices(ctx)
	if err != nil {
		fatal("devices", err)
	}
	if out.json {
		ids := make([]string, 0, len(devices))
		for _, device := range devices {
			ids = append(ids, device.ID)
		}
		out.printJSON(ids)
		return
	}
	for _, device := range devices {
		fmt.Println(device.ID)
	}
}

func statusCmd(ctx context.Context, client *harvia.Client, deviceID string, out outputMode) {
	state, err := client.DeviceState(ctx, deviceID)
	if err != nil {
		fatal("status", err)
	}
	report := tools.FormatStatus(state)
	if out.json {
		out.printJSON(report)
		return
	}

	rows := [][]string{
		{"device", report.DeviceID},
		{"name", report.Name},
		{"power", report.Power},
		{"lights", report.Lights},
		{"fan", report.Fan},
		{"steamer", report.Steamer},
	}
	if report.TargetTemperatureF != nil {
		rows = append(rows, []string{"target", fmt.Sprintf("%.1f°F (%.1f°C)", *report.TargetTemperatureF, *report.TargetTemperatureC)})
	}
	if report.CurrentTemperatureF != nil {
		rows = append(rows, []string{"current", fmt.Sprintf("%.1f°F (%.1f°C)", *report.CurrentTemperatureF, *report.CurrentTemperatureC)})
	}
	if report.HumidityPct != nil {
		rows = append(rows, []string{"humidity", fmt.Sprintf("%.0f", *report.HumidityPct)})
	}
	if report.TargetHumidityPct != nil {
		rows = append(rows, []string{"target humidity", fmt.Sprintf("%.0f", *report.TargetHumidityPct)})
	}
	if report.RemainingTimeMin != nil {
		rows = append(rows, []string{"remaining", fmt.Sprintf("%.0f min", *report.RemainingTimeMin)})
	}
	if report.Door != "" {
		rows = append(rows, []string{"door", report.Door})
	}
	out.table(rows)
}

func powerCmd(ctx context.Context, client *harvia.Client, deviceID string, on bool, out outputMode) {
	action := "on"
	if !on {
		action = "off"
	}
	id, err := client.ResolveDeviceID(ctx, deviceID)
	if err != nil {
		fatal(action, err)
	}
	if err := client.SetPower(ctx, id, on); err != nil {
		fatal(action, err)
	}
	if out.json {
		out.printJSON(map[string]any{"status": "ok", "device_id": id, "power": action})
		return
	}
	fmt.Printf("ok: %s power -> %s\n", id, action)
}

func setTempCmd(ctx context.Context, client *harvia.Client, deviceID string, args []string, out outputMode) {
	if len(args) < 1 {
		fatal("set-temp", fmt.Errorf("usage: gosauna-cli set-temp <fahrenheit>"))
	}
	fahrenheit, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fatal("set-temp", fmt.Errorf("invalid temperature %q", args[0]))
	}
	if err := harvia.ValidateTemperatureF(fahrenheit); err != nil {
		fatal("set-temp", err)
	}
	celsius := harvia.FahrenheitToCelsius(fahrenheit)

	id, err := client.ResolveDeviceID(ctx, deviceID)
	if err != nil {
		fatal("set-temp", err)
	}
	if err := client.SetTargetTemperature(ctx, id, celsius); err != nil {
		fatal("set-temp", err)
	}
	if out.json {
		out.printJSON(map[string]any{
			"status":               "ok",
			"device_id":            id,
			"target_temperature_f": fahrenheit,
			"target_temperature_c": celsius,
		})
		return
	}
	fmt.Printf("ok: %s -> %.1f°F (%.1f°C)\n", id, fahrenheit, celsius)
}

func switchCmd(ctx context.Context, client *harvia.Client, deviceID, name string, set func(context.Context, string, bool) error, args []string, out outputMode) {
	if len(args) < 1 {
		fatal(name, fmt.Errorf("usage: gosauna-cli %s <on|off>", name))
	}
	on, err := parseOnOff(args[0])
	if err != nil {
		fatal(name, err)
	}

	id, err := client.ResolveDeviceID(ctx, deviceID)
	if err != nil {
		fatal(name, err)
	}
	if err := set(ctx, id, on); err != nil {
		fatal(name, err)
	}
	if out.json {
		out.printJSON(map[string]any{"status": "ok", "device_id": id, name: onOffWord(on)})
		return
	}
	fmt.Printf("ok: %s %s -> %s\n", id, name, onOffWord(on))
}

func setHumidityCmd(ctx context.Context, client *harvia.Client, deviceID string, args []string, out outputMode) {
	if len(args) < 1 {
		fatal("set-humidity", fmt.Errorf("usage: gosauna-cli set-humidity <pct>"))
	}
	humidity, err := strconv.Atoi(args[0])
	if err != nil {
		fatal("set-humidity", fmt.Errorf("invalid humidity %q", args[0]))
	}
	if err := harvia.ValidateHumidity(humidity); err != nil {
		fatal("set-humidity", err)
	}

	id, err := client.ResolveDeviceID(ctx, deviceID)
	if err != nil {
		fatal("set-humidity", err)
	}
	if err := client.SetTargetHumidity(ctx, id, humidity); err != nil {
		fatal("set-humidity", err)
	}
	if out.json {
		out.printJSON(map[string]any{"status": "ok", "device_id": id, "target_humidity_pct": humidity})
		return
	}
	fmt.Printf("ok: %s humidity -> %d\n", id, humidity)
}

func endpointsCmd(ctx context.Context, client *harvia.Client, out outputMode) {
	kinds := []harvia.EndpointKind{
		harvia.EndpointUsers, harvia.EndpointDevice, harvia.EndpointEvents, harvia.EndpointData,
	}
	docs := make(map[string]harvia.Endpoint, len(kinds))
	for _, kind := range kinds {
		ep, err := client.Endpoint(ctx, kind)
		if err != nil {
			fatal("endpoints", err)
		}
		docs[string(kind)] = ep
	}
	if out.json {
		out.printJSON(docs)
		return
	}
	rows := [][]string{{"KIND", "ENDPOINT", "USER POOL"}}
	for _, kind := range kinds {
		doc := docs[string(kind)]
		rows = append(rows, []string{string(kind), doc.URL, doc.UserPoolID})
	}
	out.table(rows)
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", value)
}

func onOffWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func usage() {
	fmt.Println("gosauna-cli <command> [flags] [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  devices")
	fmt.Println("  status")
	fmt.Println("  on | off")
	fmt.Println("  set-temp <fahrenheit>")
	fmt.Println("  lights <on|off>")
	fmt.Println("  steamer <on|off>")
	fmt.Println("  fan <on|off>")
	fmt.Println("  set-humidity <pct>")
	fmt.Println("  endpoints")
	fmt.Println("")
	fmt.Println("Flags:")
	fmt.Println("  --device <id>  target device (defaults to the account's only device)")
	fmt.Println("  --json         print JSON")
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	os.Exit(1)
}
