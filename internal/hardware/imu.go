package hardware

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"

	"github.com/relabs-tech/pubmarine/internal/protocol"
)

// Default MPU9250 ranges after Init: ±2 g and ±250 °/s.
const (
	accelLSBPerG   = 16384.0
	gyroLSBPerDegS = 131.0
	standardG      = 9.80665
)

// IMU reads acceleration and rotation from an MPU9250 on SPI.
type IMU struct {
	dev *mpu9250.MPU9250
}

// OpenIMU initializes the MPU9250 on spiDev with chip select on csPin.
// The periph host must already be initialized.
func OpenIMU(spiDev, csPin string) (*IMU, error) {
	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}
	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}
	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}
	return &IMU{dev: dev}, nil
}

// Read returns acceleration in m/s² and rotation in rad/s.
func (i *IMU) Read() (acc, gyro protocol.Vec3, err error) {
	var raw [6]int16
	reads := []struct {
		name string
		fn   func() (int16, error)
	}{
		{"acc X", i.dev.GetAccelerationX},
		{"acc Y", i.dev.GetAccelerationY},
		{"acc Z", i.dev.GetAccelerationZ},
		{"gyro X", i.dev.GetRotationX},
		{"gyro Y", i.dev.GetRotationY},
		{"gyro Z", i.dev.GetRotationZ},
	}
	for n, r := range reads {
		if raw[n], err = r.fn(); err != nil {
			return acc, gyro, fmt.Errorf("IMU %s: %w", r.name, err)
		}
	}
	return ScaleAccel(raw[0], raw[1], raw[2]), ScaleGyro(raw[3], raw[4], raw[5]), nil
}

// ScaleAccel converts raw accelerometer counts to m/s².
func ScaleAccel(x, y, z int16) protocol.Vec3 {
	f := standardG / accelLSBPerG
	return protocol.Vec3{float64(x) * f, float64(y) * f, float64(z) * f}
}

// ScaleGyro converts raw gyroscope counts to rad/s.
func ScaleGyro(x, y, z int16) protocol.Vec3 {
	f := math.Pi / 180 / gyroLSBPerDegS
	return protocol.Vec3{float64(x) * f, float64(y) * f, float64(z) * f}
}
