package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/geo"
)

// CommandGeolocator shells out to a device-specific helper for a one-shot
// fix (termux-location, gpspipe wrappers and the like). The helper prints a
// JSON object with latitude/longitude; a helper that detects a declined
// permission reports it in the error field.
type CommandGeolocator struct {
	command string
}

func NewCommandGeolocator(command string) *CommandGeolocator {
	return &CommandGeolocator{command: command}
}

type commandFix struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     string   `json:"error"`
}

func (g *CommandGeolocator) Current(ctx context.Context) (geo.Point, error) {
	parts := strings.Fields(g.command)
	if len(parts) == 0 {
		return geo.Point{}, ErrNoGeolocation
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	output, err := cmd.Output()
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: %v", ErrNoFix, err)
	}

	var fix commandFix
	if err := json.Unmarshal(output, &fix); err != nil {
		return geo.Point{}, fmt.Errorf("%w: unreadable helper output: %v", ErrNoFix, err)
	}

	if fix.Error != "" {
		if strings.Contains(strings.ToLower(fix.Error), "denied") {
			return geo.Point{}, ErrLocationDenied
		}
		return geo.Point{}, fmt.Errorf("%w: %s", ErrNoFix, fix.Error)
	}

	if fix.Latitude == nil || fix.Longitude == nil {
		return geo.Point{}, fmt.Errorf("%w: helper output missing coordinates", ErrNoFix)
	}

	return geo.Point{Lat: *fix.Latitude, Lng: *fix.Longitude}, nil
}
