package command

import (
	"context"
	"strconv"

	"github.com/survey-ops/surveyor/internal/bus"
)

func busCommand(name string, args ...string) bus.Command {
	return bus.Command{Name: name, Args: args}
}

// StartRecording asks the remote executive to start a data recording tagged
// with description. Blocks for the acknowledgment.
func (c *Client) StartRecording(ctx context.Context, description string) int {
	return c.SendAndWait(ctx, busCommand(CmdStartRecording, description))
}

// StopRecording stops the active data recording. Blocks for the
// acknowledgment.
func (c *Client) StopRecording(ctx context.Context) int {
	return c.SendAndWait(ctx, busCommand(CmdStopRecording))
}

// ChangeExposure adjusts the camera exposure. The remote side does not
// acknowledge exposure changes yet, so this only records the request.
func (c *Client) ChangeExposure(ctx context.Context, val float64) int {
	c.logger.Info("change exposure", "value", strconv.FormatFloat(val, 'f', -1, 64))
	return 0
}

// ChangeMap switches the active localization map. Same as ChangeExposure,
// not acknowledged yet.
func (c *Client) ChangeMap(ctx context.Context, name string) int {
	c.logger.Info("change map", "map", name)
	return 0
}
