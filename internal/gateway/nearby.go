package gateway

import (
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/fairwaylab/coursemapper/internal/model"
)

// CourseSummary is the course-picker projection of a course.
type CourseSummary struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Location   model.Location `json:"location"`
	TotalHoles int            `json:"total_holes"`
}

// Nearby filters courses to those whose location falls within the H3
// grid disk of radius ringK around the query point, nearest first.
// Callers pass the live collection rather than persisted state so a
// course is findable the moment it is created.
func Nearby(courses []*model.Course, at model.LatLng, res, ringK int) ([]CourseSummary, error) {
	if res < 0 || res > 15 {
		return nil, fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	if ringK < 0 {
		ringK = 0
	}

	origin, err := h3.LatLngToCell(h3.LatLng{Lat: at.Lat, Lng: at.Lng}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 cell for query point: %w", err)
	}
	disk, err := h3.GridDisk(origin, ringK)
	if err != nil {
		return nil, fmt.Errorf("h3 grid disk: %w", err)
	}
	within := make(map[h3.Cell]struct{}, len(disk))
	for _, c := range disk {
		within[c] = struct{}{}
	}

	var out []CourseSummary
	for _, c := range courses {
		cell, err := h3.LatLngToCell(h3.LatLng{Lat: c.Location.At.Lat, Lng: c.Location.At.Lng}, res)
		if err != nil {
			continue
		}
		if _, ok := within[cell]; !ok {
			continue
		}
		out = append(out, CourseSummary{
			ID:         c.ID,
			Name:       c.Name,
			Location:   c.Location,
			TotalHoles: c.TotalHoles,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		di := model.HaversineMeters(at, out[i].Location.At)
		dj := model.HaversineMeters(at, out[j].Location.At)
		return di < dj
	})
	return out, nil
}
