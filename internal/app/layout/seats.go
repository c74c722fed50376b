// Package layout seats remote participants around a virtual round table.
//
// Seat 0 belongs to the local participant and is the camera position; remote
// video surfaces take seats 1..n in roster order. The whole layout is
// recomputed from the roster on every change.
package layout

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MinRadius keeps a near-empty table from collapsing onto the camera;
// beyond it the radius grows by SeatSpacing per seat.
const (
	MinRadius   = 7.0
	SeatSpacing = 10.0
	SurfaceSize = 10.0
	SeatHeight  = 0.0
)

// Seat is the placement of one remote surface. Index is 1-based.
type Seat struct {
	Index    int        `json:"index"`
	Radius   float64    `json:"radius"`
	Angle    float64    `json:"angle"`
	Position mgl64.Vec3 `json:"position"`
	Facing   mgl64.Vec3 `json:"facing"`
}

// Layout is one full recomputation.
type Layout struct {
	SeatCount int        `json:"seat_count"`
	Radius    float64    `json:"radius"`
	Camera    mgl64.Vec3 `json:"camera"`
	Seats     []Seat     `json:"seats"`
}

// Radius returns the table radius for seatCount seats.
func Radius(seatCount int) float64 {
	return math.Max(MinRadius, SeatSpacing*float64(seatCount))
}

// Compute lays out n remote surfaces plus the local seat.
func Compute(n int) Layout {
	if n < 0 {
		n = 0
	}
	seatCount := n + 1
	r := Radius(seatCount)
	l := Layout{
		SeatCount: seatCount,
		Radius:    r,
		Camera:    mgl64.Vec3{r, SeatHeight, 0},
		Seats:     make([]Seat, 0, n),
	}
	for i := 1; i <= n; i++ {
		l.Seats = append(l.Seats, seatAt(i, seatCount, r))
	}
	return l
}

func seatAt(i, seatCount int, r float64) Seat {
	angle := float64(i) * 2 * math.Pi / float64(seatCount)
	pos := mgl64.Vec3{r * math.Cos(angle), SeatHeight, r * math.Sin(angle)}
	return Seat{
		Index:    i,
		Radius:   r,
		Angle:    angle,
		Position: pos,
		Facing:   facingCenter(pos),
	}
}

// facingCenter points from pos towards the table center on the seat plane.
func facingCenter(pos mgl64.Vec3) mgl64.Vec3 {
	dir := mgl64.Vec3{-pos.X(), 0, -pos.Z()}
	if dir.Len() == 0 {
		return mgl64.Vec3{0, 0, 1}
	}
	return dir.Normalize()
}

// Yaw is the rotation about +Y that turns a plane's +Z normal onto Facing.
func (s Seat) Yaw() float64 {
	return math.Atan2(s.Facing.X(), s.Facing.Z())
}
