package place

import (
	"errors"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("place not found")

// Place is the storage shape of a point of interest. Coordinates are kept
// as two scalar columns; see View for the external representation.
type Place struct {
	ID                  string
	Address             *string
	Code                string
	Lat                 float64
	Lon                 float64
	Name                *string
	RewardCheckinPoints int
	Type                string
	Tags                []string
}

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// View is the JSON representation served by the API.
type View struct {
	ID                  string   `json:"id"`
	Address             *string  `json:"address"`
	Code                string   `json:"code"`
	Location            Location `json:"location"`
	Name                *string  `json:"name"`
	RewardCheckinPoints int      `json:"reward_checkin_points"`
	Tags                []string `json:"tags"`
	Type                string   `json:"type"`
}

func (p Place) View() View {
	tags := NormalizeTags(p.Tags)
	return View{
		ID:                  p.ID,
		Address:             p.Address,
		Code:                p.Code,
		Location:            Location{Lat: p.Lat, Lon: p.Lon},
		Name:                p.Name,
		RewardCheckinPoints: p.RewardCheckinPoints,
		Tags:                tags,
		Type:                p.Type,
	}
}

func Views(places []Place) []View {
	out := make([]View, 0, len(places))
	for _, p := range places {
		out = append(out, p.View())
	}
	return out
}

// NormalizeTags trims labels, drops empty ones, removes duplicates and sorts
// the result. The returned slice is never nil.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Field names as they appear in request bodies.
const (
	FieldAddress = "address"
	FieldCode    = "code"
	FieldLat     = "location.lat"
	FieldLon     = "location.lon"
	FieldName    = "name"
	FieldReward  = "reward_checkin_points"
	FieldTags    = "tags"
	FieldType    = "type"
)

// Changes is a decoded write request: the values in Place plus the set of
// fields the client actually supplied.
type Changes struct {
	Place
	fields map[string]struct{}
}

func (c Changes) Has(field string) bool {
	_, ok := c.fields[field]
	return ok
}

func (c *Changes) mark(field string) {
	if c.fields == nil {
		c.fields = map[string]struct{}{}
	}
	c.fields[field] = struct{}{}
}

// Apply merges the changes into current. A full update replaces every
// writable field; a partial one only those that were supplied. The ID of
// current is always kept.
func (c Changes) Apply(current Place, partial bool) Place {
	if !partial {
		next := c.Place
		next.ID = current.ID
		next.Tags = NormalizeTags(next.Tags)
		return next
	}

	next := current
	if c.Has(FieldAddress) {
		next.Address = c.Address
	}
	if c.Has(FieldCode) {
		next.Code = c.Code
	}
	if c.Has(FieldLat) {
		next.Lat = c.Lat
	}
	if c.Has(FieldLon) {
		next.Lon = c.Lon
	}
	if c.Has(FieldName) {
		next.Name = c.Name
	}
	if c.Has(FieldReward) {
		next.RewardCheckinPoints = c.RewardCheckinPoints
	}
	if c.Has(FieldTags) {
		next.Tags = NormalizeTags(c.Tags)
	}
	if c.Has(FieldType) {
		next.Type = c.Type
	}
	return next
}

// TagsChanged reports whether applying c replaces the tag set.
func (c Changes) TagsChanged(partial bool) bool {
	return !partial || c.Has(FieldTags)
}
