package entity

import (
	"fmt"
	"math"
	"strings"
)

type Style string

const (
	StyleModern     Style = "Modern"
	StyleIndustrial Style = "Industrial"
	StyleMinimalist Style = "Minimalist"
	StyleVictorian  Style = "Victorian"
)

var Styles = []Style{StyleModern, StyleIndustrial, StyleMinimalist, StyleVictorian}

type Material string

const (
	MaterialGlass    Material = "Glass"
	MaterialWood     Material = "Wood"
	MaterialConcrete Material = "Concrete"
	MaterialSteel    Material = "Steel"
)

var Materials = []Material{MaterialGlass, MaterialWood, MaterialConcrete, MaterialSteel}

const (
	MinFloors = 1
	MaxFloors = 3

	DefaultLength = 60
	DefaultWidth  = 40
	DefaultBrief  = "A luxury villa with a wrap-around porch."
)

// DesignRequest is one form submission. It lives for a single request.
type DesignRequest struct {
	Length    float64    `json:"length"`
	Width     float64    `json:"width"`
	Floors    int        `json:"floors"`
	Style     Style      `json:"style"`
	Materials []Material `json:"materials"`
	Brief     string     `json:"brief"`
}

func DefaultDesignRequest() DesignRequest {
	return DesignRequest{
		Length:    DefaultLength,
		Width:     DefaultWidth,
		Floors:    MinFloors,
		Style:     StyleModern,
		Materials: []Material{MaterialGlass},
		Brief:     DefaultBrief,
	}
}

func (r DesignRequest) Area() float64 {
	return r.Length * r.Width
}

func (r DesignRequest) TotalArea() float64 {
	return r.Area() * float64(r.Floors)
}

// HasMaterial reports whether m is part of the selection.
func (r DesignRequest) HasMaterial(m Material) bool {
	for _, sel := range r.Materials {
		if sel == m {
			return true
		}
	}
	return false
}

// Normalize clamps floors into [MinFloors, MaxFloors], canonicalizes style
// and material casing and drops repeated materials keeping first-seen order.
// The brief is left exactly as entered. Unknown values are kept for Validate
// to report.
func (r DesignRequest) Normalize() DesignRequest {
	out := r
	if st, err := ParseStyle(string(r.Style)); err == nil {
		out.Style = st
	}
	switch {
	case out.Floors < MinFloors:
		out.Floors = MinFloors
	case out.Floors > MaxFloors:
		out.Floors = MaxFloors
	}

	materials := make([]Material, 0, len(r.Materials))
	seen := make(map[Material]struct{}, len(r.Materials))
	for _, m := range r.Materials {
		if canon, err := ParseMaterial(string(m)); err == nil {
			m = canon
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		materials = append(materials, m)
	}
	out.Materials = materials
	return out
}

func (r DesignRequest) Validate() error {
	var fields []FieldError
	if !isPositive(r.Length) {
		fields = append(fields, FieldError{Field: "length", Message: "must be a positive number"})
	}
	if !isPositive(r.Width) {
		fields = append(fields, FieldError{Field: "width", Message: "must be a positive number"})
	}
	if _, err := ParseStyle(string(r.Style)); err != nil {
		fields = append(fields, FieldError{Field: "style", Message: err.Error()})
	}
	for _, m := range r.Materials {
		if _, err := ParseMaterial(string(m)); err != nil {
			fields = append(fields, FieldError{Field: "materials", Message: err.Error()})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1) && !math.IsNaN(v)
}

func ParseStyle(s string) (Style, error) {
	for _, st := range Styles {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown style %q", s)
}

func ParseMaterial(s string) (Material, error) {
	for _, m := range Materials {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown material %q", s)
}
