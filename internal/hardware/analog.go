package hardware

import (
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
)

// seawater density times g, in Pa per metre
const pascalPerMetre = 1025 * 9.80665

var adcChannels = [4]ads1x15.Channel{
	ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3,
}

type sampler interface {
	Read() (analog.Sample, error)
}

// AnalogInput is one scaled ADS1115 channel.
type AnalogInput struct {
	name  string
	pin   sampler
	scale float64 // applied to the measured volts
}

// OpenAnalogInputs opens the battery and depth channels of an ADS1115.
func OpenAnalogInputs(bus i2c.Bus, addr uint16, batteryCh, depthCh int, divider, depthFullScale float64) (battery, depth *AnalogInput, err error) {
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		return nil, nil, fmt.Errorf("ADC: %w", err)
	}
	open := func(name string, ch int, scale float64) (*AnalogInput, error) {
		pin, err := adc.PinForChannel(adcChannels[ch], 4096*physic.MilliVolt, 8*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			return nil, fmt.Errorf("ADC %s channel %d: %w", name, ch, err)
		}
		return &AnalogInput{name: name, pin: pin, scale: scale}, nil
	}
	if battery, err = open("battery", batteryCh, divider); err != nil {
		return nil, nil, err
	}
	if depth, err = open("depth", depthCh, 1/depthFullScale); err != nil {
		return nil, nil, err
	}
	return battery, depth, nil
}

func (a *AnalogInput) Value() (float64, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("ADC %s: %w", a.name, err)
	}
	return Volts(s.V) * a.scale, nil
}

// Volts converts a periph potential to volts.
func Volts(v physic.ElectricPotential) float64 {
	return float64(v) / float64(physic.Volt)
}

// PressureDepth derives depth in metres from a BMP280 absolute pressure
// reading.
type PressureDepth struct {
	dev     *bmxx80.Dev
	surface float64 // Pa
}

// OpenPressureDepth opens a BMP280 on spiDev. surfacePa is the pressure at
// zero depth.
func OpenPressureDepth(spiDev string, surfacePa float64) (*PressureDepth, error) {
	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("BMP SPI open (%s): %w", spiDev, err)
	}
	dev, err := bmxx80.NewSPI(port, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("BMP init: %w", err)
	}
	return &PressureDepth{dev: dev, surface: surfacePa}, nil
}

func (p *PressureDepth) Value() (float64, error) {
	var e physic.Env
	if err := p.dev.Sense(&e); err != nil {
		return 0, fmt.Errorf("BMP sense: %w", err)
	}
	return DepthFromPressure(float64(e.Pressure)/float64(physic.Pascal), p.surface), nil
}

// DepthFromPressure returns metres of seawater above the sensor, never
// negative.
func DepthFromPressure(pa, surfacePa float64) float64 {
	return max(0, (pa-surfacePa)/pascalPerMetre)
}
