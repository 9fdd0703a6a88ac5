package types

import (
	"errors"
	"fmt"
)

// ErrValidation marks request data that was rejected before any I/O took place
var ErrValidation = errors.New("validation failed")

// Default panel geometry, used when a request does not specify one.
const (
	DefaultTilt        = 35.0
	DefaultOrientation = 180.0
)

// Site describes a PV installation: where it is, how it is mounted and its
// rated capacity in kWp.
type Site struct {
	Name        string  `json:"name,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CapacityKWp float64 `json:"capacity_kwp"`
	Tilt        float64 `json:"tilt"`
	Orientation float64 `json:"orientation"`
}

// NewSite returns a site with the default tilt and orientation
func NewSite(lat, lon, capacityKWp float64) Site {
	return Site{
		Latitude:    lat,
		Longitude:   lon,
		CapacityKWp: capacityKWp,
		Tilt:        DefaultTilt,
		Orientation: DefaultOrientation,
	}
}

// Validate checks the site against its physical ranges
func (s Site) Validate() error {
	switch {
	case s.Latitude < -90 || s.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrValidation, s.Latitude)
	case s.Longitude < -180 || s.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrValidation, s.Longitude)
	case s.CapacityKWp < 0:
		return fmt.Errorf("%w: capacity_kwp must be non-negative, got %v", ErrValidation, s.CapacityKWp)
	case s.Tilt < 0 || s.Tilt > 90:
		return fmt.Errorf("%w: tilt %v out of range [0,90]", ErrValidation, s.Tilt)
	case s.Orientation < 0 || s.Orientation > 360:
		return fmt.Errorf("%w: orientation %v out of range [0,360]", ErrValidation, s.Orientation)
	}
	return nil
}

// Key identifies the site in persisted history. Named sites use their name;
// ad-hoc sites are keyed by rounded coordinates and capacity.
func (s Site) Key() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%.4f,%.4f@%.2fkWp", s.Latitude, s.Longitude, s.CapacityKWp)
}
