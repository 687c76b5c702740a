package modifier

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/menta2k/image-geometry/pkg/geometry"
)

// ErrInvalidParameter is returned for malformed or negative request values
var ErrInvalidParameter = errors.New("invalid parameter")

// Params is a request as received from a caller; nil fields were not
// given. Modifier folds nil and zero into the "compute it" sentinel.
type Params struct {
	Width      *int
	Height     *int
	Density    *geometry.Dimensions
	Format     string
	Stretch    bool
	KeepAspect bool
}

// Modifier validates the params and converts them
func (p Params) Modifier() (Modifier, error) {
	width, err := optional("width", p.Width)
	if err != nil {
		return Modifier{}, err
	}
	height, err := optional("height", p.Height)
	if err != nil {
		return Modifier{}, err
	}

	m := New(width, height, p.Stretch, p.KeepAspect)

	if p.Density != nil {
		d := *p.Density
		if d.Width < 0 || d.Height < 0 {
			return Modifier{}, fmt.Errorf("%w: density %s is negative", ErrInvalidParameter, d)
		}
		if d.IsZero() {
			d = geometry.Empty
		} else {
			d = geometry.NewDimensions(max(d.Width, 1), max(d.Height, 1))
		}
		m = m.WithDensity(d)
	}

	format, err := ParseFormat(p.Format)
	if err != nil {
		return Modifier{}, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	return m.WithFormat(format), nil
}

func optional(name string, v *int) (int, error) {
	if v == nil {
		return 0, nil
	}
	if *v < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidParameter, name, *v)
	}
	return *v, nil
}

// ParseQuery reads params from query values: w, h, size (WxH, overrides
// w/h), density (N or NxM), format, stretch and keepAspect
func ParseQuery(q url.Values) (Params, error) {
	var p Params
	var err error

	if p.Width, err = queryInt(q, "w"); err != nil {
		return Params{}, err
	}
	if p.Height, err = queryInt(q, "h"); err != nil {
		return Params{}, err
	}

	if s := q.Get("size"); s != "" {
		d, err := geometry.ParseDimensions(s)
		if err != nil {
			return Params{}, fmt.Errorf("%w: size: %w", ErrInvalidParameter, err)
		}
		p.Width, p.Height = &d.Width, &d.Height
	}

	if s := q.Get("density"); s != "" {
		d, err := parseDensity(s)
		if err != nil {
			return Params{}, err
		}
		p.Density = &d
	}

	if p.Stretch, err = queryBool(q, "stretch"); err != nil {
		return Params{}, err
	}
	if p.KeepAspect, err = queryBool(q, "keepAspect"); err != nil {
		return Params{}, err
	}
	p.Format = q.Get("format")

	return p, nil
}

func parseDensity(s string) (geometry.Dimensions, error) {
	if !strings.ContainsAny(s, "xX,") {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return geometry.Empty, fmt.Errorf("%w: density: %w", ErrInvalidParameter, err)
		}
		return geometry.NewDimensions(v, v), nil
	}
	d, err := geometry.ParseDimensions(s)
	if err != nil {
		return geometry.Empty, fmt.Errorf("%w: density: %w", ErrInvalidParameter, err)
	}
	return d, nil
}

func queryInt(q url.Values, key string) (*int, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidParameter, key, err)
	}
	return &v, nil
}

func queryBool(q url.Values, key string) (bool, error) {
	if !q.Has(key) {
		return false, nil
	}
	s := q.Get(key)
	if s == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrInvalidParameter, key, err)
	}
	return v, nil
}
