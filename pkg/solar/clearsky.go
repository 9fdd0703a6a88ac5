package solar

import (
	"math"
	"time"
)

const (
	solarConstant = 1361.0 // W/m²

	// DefaultLinkeTurbidity is a typical value for clean mid-latitude air
	DefaultLinkeTurbidity = 2.0
)

// ClearSkyGHI estimates global horizontal irradiance in W/m² under a cloudless
// sky with the Ineichen-Perez model. altitude is in metres. The result is zero
// when the sun is below the horizon.
func ClearSkyGHI(t time.Time, latitude, longitude, altitude float64) float64 {
	return ClearSkyGHIWithTurbidity(t, latitude, longitude, altitude, DefaultLinkeTurbidity)
}

// ClearSkyGHIWithTurbidity is ClearSkyGHI with an explicit Linke turbidity factor
func ClearSkyGHIWithTurbidity(t time.Time, latitude, longitude, altitude, linke float64) float64 {
	pos := SunPosition(t, latitude, longitude)
	if pos.ElevationDeg <= 0 {
		return 0
	}

	zenith := 90 - pos.ElevationDeg
	cosZ := math.Cos(degToRad(zenith))
	n := float64(t.UTC().YearDay())

	// extraterrestrial irradiance corrected for orbital distance
	g0 := solarConstant / (pos.EarthSunAU * pos.EarthSunAU)

	// Kasten-Young air mass
	am := 1.0 / (cosZ + 0.50572*math.Pow(96.07995-zenith, -1.6364))

	fh1 := math.Exp(-altitude / 8000.0)
	fh2 := math.Exp(-altitude / 1250.0)
	cg1 := 5.09e-5*altitude + 0.868
	cg2 := 3.92e-5*altitude + 0.0387

	ghi := cg1 * g0 * cosZ * math.Exp(-cg2*am*(fh1+fh2*(linke-1))) * math.Exp(0.01*math.Pow(am, 1.8))

	// seasonal diffuse share keeps low-sun hours from collapsing to zero
	fd := 0.1 + 0.05*math.Sin(math.Pi*(n-100)/365.0)
	ghi += fd * g0 * cosZ * 0.1

	if ghi < 0 || math.IsNaN(ghi) {
		return 0
	}
	return ghi
}
