// Package solar computes sun position and clear-sky irradiance for a site.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// Position describes where the sun is for an observer at a given instant
type Position struct {
	ElevationDeg   float64
	AzimuthDeg     float64
	CosZenith      float64
	DeclinationDeg float64
	EqOfTimeMin    float64
	// EarthSunAU is the Earth-Sun distance in astronomical units
	EarthSunAU float64
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
func fixAngle(a float64) float64   { return a - 360.0*math.Floor(a/360.0) }

// SunPosition returns the apparent solar position at t for lat/lon in degrees.
// Elevation includes a fixed refraction correction near the horizon.
func SunPosition(t time.Time, lat, lon float64) Position {
	t = t.UTC()
	jd := julian.TimeToJD(t)
	T := (jd - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	sunLong := L0 + C
	omega := 125.04 - 1934.136*T
	lambda := sunLong - 0.00569 - 0.00478*math.Sin(degToRad(omega))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	declRad := math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(lambda)))

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	eqTimeMin := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4

	utcMin := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0
	tst := utcMin + 4*lon + eqTimeMin
	ha := tst/4 - 180

	latRad := degToRad(lat)
	cosZen := math.Sin(latRad)*math.Sin(declRad) + math.Cos(latRad)*math.Cos(declRad)*math.Cos(degToRad(ha))
	cosZen = math.Max(-1, math.Min(1, cosZen))
	zenRad := math.Acos(cosZen)
	elDeg := 90 - radToDeg(zenRad)
	if elDeg > -1 {
		elDeg += refraction(elDeg)
	}

	// true anomaly from the eccentric anomaly, first order
	mRad := degToRad(M)
	E := mRad + e*math.Sin(mRad)*(1+e*math.Cos(mRad))
	v := 2 * math.Atan(math.Sqrt((1+e)/(1-e))*math.Tan(E/2))
	r := (1 - e*e) / (1 + e*math.Cos(v))

	p := Position{
		ElevationDeg:   elDeg,
		CosZenith:      cosZen,
		DeclinationDeg: radToDeg(declRad),
		EqOfTimeMin:    eqTimeMin,
		EarthSunAU:     r,
	}

	if sinZen := math.Sin(zenRad); sinZen > 1e-9 && math.Cos(latRad) > 1e-9 {
		azCos := (math.Sin(declRad) - math.Sin(latRad)*cosZen) / (math.Cos(latRad) * sinZen)
		az := radToDeg(math.Acos(math.Max(-1, math.Min(1, azCos))))
		if ha > 0 {
			az = 360 - az
		}
		p.AzimuthDeg = az
	}

	return p
}

// refraction is the Saemundsson approximation in degrees
func refraction(elDeg float64) float64 {
	return 1.02 / math.Tan(degToRad(elDeg+10.3/(elDeg+5.11))) / 60.0
}
