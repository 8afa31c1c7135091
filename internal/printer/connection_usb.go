package printer

import (
	"fmt"
	"sync"

	"github.com/google/gousb"
)

// USBConnection represents a USB printer connection
type USBConnection struct {
	ctx      *gousb.Context
	device   *gousb.Device
	config   *gousb.Config
	iface    *gousb.Interface
	done     func()
	endpoint *gousb.OutEndpoint
	mu       sync.Mutex
}

// ConnectUSB claims the first interface with a bulk OUT endpoint.
// Fails when libusb is not installed.
func ConnectUSB(vid, pid uint16) (*USBConnection, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil || dev == nil {
		ctx.Close()
		if err == nil {
			err = fmt.Errorf("device not found")
		}
		return nil, fmt.Errorf("failed to open USB device %04X:%04X: %w", vid, pid, err)
	}

	c := &USBConnection{ctx: ctx, device: dev}

	// Most printers work with interface 0, some need the kernel driver detached first
	iface, done, err := dev.DefaultInterface()
	if err != nil {
		dev.SetAutoDetach(true)
		iface, done, err = dev.DefaultInterface()
	}
	if err == nil {
		if ep := outEndpoint(iface); ep != nil {
			c.iface, c.done, c.endpoint = iface, done, ep
			return c, nil
		}
		done()
	}

	lastErr := err
	for _, cfgDesc := range dev.Desc.Configs {
		cfg, err := dev.Config(cfgDesc.Number)
		if err != nil {
			lastErr = fmt.Errorf("failed to set config %d: %w", cfgDesc.Number, err)
			continue
		}

		for _, ifaceDesc := range cfgDesc.Interfaces {
			iface, err := cfg.Interface(ifaceDesc.Number, 0)
			if err != nil {
				lastErr = fmt.Errorf("failed to claim interface %d: %w", ifaceDesc.Number, err)
				continue
			}
			if ep := outEndpoint(iface); ep != nil {
				c.config, c.iface, c.endpoint = cfg, iface, ep
				return c, nil
			}
			iface.Close()
		}
		cfg.Close()
	}

	dev.Close()
	ctx.Close()

	if lastErr != nil {
		return nil, fmt.Errorf("failed to connect to USB printer %04X:%04X: %w", vid, pid, lastErr)
	}
	return nil, fmt.Errorf("no OUT endpoint found for USB printer %04X:%04X", vid, pid)
}

func outEndpoint(iface *gousb.Interface) *gousb.OutEndpoint {
	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction != gousb.EndpointDirectionOut {
			continue
		}
		if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
			return ep
		}
	}
	return nil
}

// Write sends raw ticket bytes to the printer
func (c *USBConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.endpoint == nil {
		return 0, ErrConnectionClosed
	}
	return c.endpoint.Write(data)
}

// Close releases the interface and the device
func (c *USBConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		c.done()
	} else if c.iface != nil {
		c.iface.Close()
	}
	if c.config != nil {
		c.config.Close()
	}

	var err error
	if c.device != nil {
		err = c.device.Close()
	}
	if c.ctx != nil {
		c.ctx.Close()
	}

	c.endpoint, c.iface, c.config, c.done, c.device, c.ctx = nil, nil, nil, nil, nil, nil
	return err
}
