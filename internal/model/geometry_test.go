package model

import (
	"math"
	"testing"
)

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// Stockholm city centre to Uppsala, roughly 63.5 km.
	sthlm := LatLng{Lat: 59.3293, Lng: 18.0686}
	uppsala := LatLng{Lat: 59.8586, Lng: 17.6389}

	d := HaversineMeters(sthlm, uppsala)
	if d < 62000 || d > 66000 {
		t.Fatalf("distance = %.0f m, want ~63500", d)
	}
	if HaversineMeters(sthlm, sthlm) != 0 {
		t.Fatalf("distance to self should be 0")
	}
}

func TestGeometry_LengthMeters(t *testing.T) {
	line := LineGeometry(
		LatLng{Lat: 0, Lng: 0},
		LatLng{Lat: 0, Lng: 0.001},
		LatLng{Lat: 0, Lng: 0.002},
	)
	// ~111.32 m per 0.001 degree of longitude at the equator.
	got := line.LengthMeters()
	if math.Abs(got-222.6) > 2 {
		t.Fatalf("length = %.2f m, want ~222.6", got)
	}

	if PointGeometry(LatLng{}).LengthMeters() != 0 {
		t.Fatalf("point length should be 0")
	}
}

func TestGeometry_CentroidAndBounds(t *testing.T) {
	poly := PolygonGeometry([]LatLng{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 2},
		{Lat: 2, Lng: 2},
		{Lat: 2, Lng: 0},
	})

	c, ok := poly.Centroid()
	if !ok {
		t.Fatalf("centroid not computed")
	}
	if c.Lat != 1 || c.Lng != 1 {
		t.Fatalf("centroid = %+v, want (1,1)", c)
	}

	b, ok := poly.BoundingBox()
	if !ok {
		t.Fatalf("bounds not computed")
	}
	want := Bounds{MinLat: 0, MinLng: 0, MaxLat: 2, MaxLng: 2}
	if b != want {
		t.Fatalf("bounds = %+v, want %+v", b, want)
	}

	if _, ok := (Geometry{Type: GeometryLine}).Centroid(); ok {
		t.Fatalf("empty geometry should not have a centroid")
	}
}

func TestGeometry_Validate(t *testing.T) {
	cases := []struct {
		name    string
		g       Geometry
		wantErr bool
	}{
		{"valid point", PointGeometry(LatLng{Lat: 1, Lng: 2}), false},
		{"valid line", LineGeometry(LatLng{}, LatLng{Lat: 1}), false},
		{"valid polygon", PolygonGeometry([]LatLng{{}, {Lat: 1}, {Lng: 1}}), false},
		{"point without payload", Geometry{Type: GeometryPoint}, true},
		{"line with one vertex", LineGeometry(LatLng{}), true},
		{"polygon with short ring", PolygonGeometry([]LatLng{{}, {Lat: 1}}), true},
		{"mixed payloads", Geometry{Type: GeometryPoint, Point: &LatLng{}, Line: []LatLng{{}, {}}}, true},
		{"unknown type", Geometry{Type: "blob"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.g.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}
