package engine

import "github.com/rustyguts/bken-engine/device"

// RunRealtime starts d, handing it GetBlock as its pull callback so every
// native-rate chunk the device needs is ultimately produced by one
// config.SR, config.BlockSize-sized GetBlock call (spec §4.1: resampling to
// the device's native rate is the device's job, not Context's). Returns
// once d.Start has accepted the callback; playback continues on d's own
// goroutines until StopRealtime is called.
func (c *Context) RunRealtime(d device.Device) error {
	return d.Start(c.GetBlock)
}

// StopRealtime halts d, blocking until its playback goroutines have
// exited.
func (c *Context) StopRealtime(d device.Device) error {
	return d.Stop()
}
