package model

import "testing"

func square() []LatLng {
	return []LatLng{{}, {Lat: 0.001}, {Lat: 0.001, Lng: 0.001}, {Lng: 0.001}}
}

func TestFeature_Validate(t *testing.T) {
	cases := []struct {
		name    string
		f       Feature
		wantErr bool
	}{
		{
			"valid tee",
			Feature{ID: "t1", Type: FeatureTee, Geometry: PointGeometry(LatLng{}), Tee: &TeeProps{}},
			false,
		},
		{
			"valid ob line",
			Feature{ID: "o1", Type: FeatureOBLine, Geometry: LineGeometry(LatLng{}, LatLng{Lat: 1}), OBLine: &OBLineProps{FairwaySide: FairwayLeft}},
			false,
		},
		{
			"valid fairway",
			Feature{ID: "fw1", Type: FeatureFairway, Geometry: PolygonGeometry(square()), Fairway: &FairwayProps{}},
			false,
		},
		{
			"missing id",
			Feature{Type: FeatureTee, Geometry: PointGeometry(LatLng{}), Tee: &TeeProps{}},
			true,
		},
		{
			"unknown type",
			Feature{ID: "x", Type: "portal", Geometry: PointGeometry(LatLng{})},
			true,
		},
		{
			"missing variant props",
			Feature{ID: "t2", Type: FeatureTee, Geometry: PointGeometry(LatLng{})},
			true,
		},
		{
			"foreign variant props set",
			Feature{ID: "t3", Type: FeatureTee, Geometry: PointGeometry(LatLng{}), Tee: &TeeProps{}, Basket: &BasketProps{}},
			true,
		},
		{
			"wrong geometry kind",
			Feature{ID: "t4", Type: FeatureTee, Geometry: LineGeometry(LatLng{}, LatLng{Lat: 1}), Tee: &TeeProps{}},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.f.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestCourseLevelFeatures_Validate(t *testing.T) {
	terr := TerrainFeature{ID: "t", Geometry: PolygonGeometry(square()), TerrainType: TerrainForest}
	if err := terr.Validate(); err != nil {
		t.Fatalf("terrain: %v", err)
	}
	terr.Geometry = PointGeometry(LatLng{})
	if err := terr.Validate(); err == nil {
		t.Fatalf("terrain with point geometry should fail")
	}

	path := PathFeature{ID: "p", Geometry: LineGeometry(LatLng{}, LatLng{Lat: 1})}
	if err := path.Validate(); err != nil {
		t.Fatalf("path: %v", err)
	}
	path.Geometry = PolygonGeometry(square())
	if err := path.Validate(); err == nil {
		t.Fatalf("path with polygon geometry should fail")
	}

	tree := TreeFeature{ID: "tr", Geometry: PointGeometry(LatLng{}), TreeType: TreeConifer}
	if err := tree.Validate(); err != nil {
		t.Fatalf("tree: %v", err)
	}
	tree.ID = " "
	if err := tree.Validate(); err == nil {
		t.Fatalf("blank tree id should fail")
	}
}
