package riokit

// NumChannels is the fixed channel count of the unit: ten digital inputs
// mirrored to discrete inputs, ten outputs per bank driven from coils.
const NumChannels = 10

// Channel maps one logical io channel to its physical pins: one digital
// input and one output in each of the two banks. Pins are resolved against
// the drivers named in the unit config, not necessarily the same driver
// for every role.
type Channel struct {
	Input uint16
	Out0  uint16
	Out1  uint16
}

// ControlPin points a single control or indicator line at a pin of one of
// the configured drivers.
type ControlPin struct {
	Pin    uint16
	Driver string
}

// channelByInputPin resolves an edge event's pin back to its channel
// number.
func (rk *RioKit) channelByInputPin(pin uint16) (int, bool) {
	for no, channel := range rk.Channels {
		if channel.Input == pin {
			return no, true
		}
	}
	return 0, false
}
