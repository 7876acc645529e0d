// Package orientation estimates the vehicle's attitude from the
// accelerometer and gyro readings in its telemetry.
package orientation

import (
	"math"
	"time"

	"github.com/relabs-tech/pubmarine/internal/protocol"
)

// Pose is roll and pitch in degrees. Yaw needs a magnetometer, which the
// vehicle does not report.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// FromAccel computes roll and pitch from gravity alone:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func FromAccel(acc protocol.Vec3) Pose {
	ax, ay, az := acc[0], acc[1], acc[2]
	return Pose{
		Roll:  math.Atan2(ay, az) * 180 / math.Pi,
		Pitch: math.Atan2(-ax, math.Sqrt(ay*ay+az*az)) * 180 / math.Pi,
	}
}

// Filter blends integrated gyro rates with the accelerometer tilt. Alpha is
// the weight of the gyro path, in [0, 1).
type Filter struct {
	Alpha float64

	pose Pose
	last time.Time
	init bool
}

func NewFilter(alpha float64) *Filter { return &Filter{Alpha: alpha} }

// Update folds in one reading taken at t. Gyro rates are rad/s.
func (f *Filter) Update(acc, gyro protocol.Vec3, t time.Time) Pose {
	tilt := FromAccel(acc)
	if !f.init || !t.After(f.last) {
		f.pose, f.last, f.init = tilt, t, true
		return f.pose
	}
	dt := t.Sub(f.last).Seconds()
	f.last = t

	const deg = 180 / math.Pi
	roll := f.pose.Roll + gyro[0]*deg*dt
	pitch := f.pose.Pitch + gyro[1]*deg*dt
	f.pose = Pose{
		Roll:  f.Alpha*roll + (1-f.Alpha)*tilt.Roll,
		Pitch: f.Alpha*pitch + (1-f.Alpha)*tilt.Pitch,
	}
	return f.pose
}

func (f *Filter) Pose() Pose { return f.pose }
