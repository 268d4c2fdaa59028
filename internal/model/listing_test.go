package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_Scan(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  StringList
	}{
		{"array bytes", []byte(`["Pool","Gym"]`), StringList{"Pool", "Gym"}},
		{"array string", `["Spa"]`, StringList{"Spa"}},
		{"null", nil, StringList{}},
		{"object", []byte(`{"pool":true}`), StringList{}},
		{"invalid json", []byte(`not json`), StringList{}},
		{"mixed elements", []byte(`["Pool", 3, null, "", "Gym"]`), StringList{"Pool", "Gym"}},
		{"unsupported type", 42, StringList{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			require.NoError(t, got.Scan(tt.value))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnitTypes_Scan(t *testing.T) {
	var got UnitTypes
	raw := []byte(`[
		{"type":"Apartment","size":"750 sqft","price":"AED 1.2M","bedrooms":1},
		{"type":"Apartment","size":1100,"price":"AED 1.9M","bedrooms":"2"},
		"garbage",
		{"type":"Studio","size":"400 sqft","price":"AED 700K"}
	]`)
	require.NoError(t, got.Scan(raw))
	require.Len(t, got, 3)
	assert.Equal(t, FlexString("1"), got[0].Bedrooms)
	assert.Equal(t, FlexString("1100"), got[1].Size)
	assert.Equal(t, FlexString(""), got[2].Bedrooms)

	var malformed UnitTypes
	require.NoError(t, malformed.Scan([]byte(`"three bedrooms"`)))
	assert.Empty(t, malformed)
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
		E FlexString `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"Studio","b":2.5,"c":true,"d":null,"e":{"x":1}}`), &v))
	assert.Equal(t, FlexString("Studio"), v.A)
	assert.Equal(t, FlexString("2.5"), v.B)
	assert.Equal(t, FlexString("true"), v.C)
	assert.Equal(t, FlexString(""), v.D)
	assert.Equal(t, FlexString(""), v.E)
}

func TestProject_Bedrooms(t *testing.T) {
	p := Project{UnitTypes: UnitTypes{
		{Bedrooms: "2"},
		{Bedrooms: "1"},
		{Bedrooms: ""},
		{Bedrooms: "2"},
		{Bedrooms: "Studio"},
	}}
	assert.Equal(t, []string{"2", "1", "Studio"}, p.Bedrooms())
	assert.Empty(t, Project{}.Bedrooms())
}

func TestProject_TopAmenities(t *testing.T) {
	p := Project{Amenities: StringList{"a", "b", "c"}}
	assert.Equal(t, []string{"a", "b"}, []string(p.TopAmenities(2)))
	assert.Equal(t, []string{"a", "b", "c"}, []string(p.TopAmenities(6)))
}

func TestCanvasType_Valid(t *testing.T) {
	for _, c := range CanvasTypes {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, CanvasType("brochure").Valid())
	assert.False(t, CanvasType("").Valid())
}

func TestRetrievalResult_Projects(t *testing.T) {
	var nilResult *RetrievalResult
	assert.Equal(t, 0, nilResult.Len())
	assert.Nil(t, nilResult.Projects())

	r := &RetrievalResult{Listings: []RankedListing{
		{Project: Project{Name: "A"}},
		{Project: Project{Name: "B"}},
	}}
	projects := r.Projects()
	require.Len(t, projects, 2)
	assert.Equal(t, "A", projects[0].Name)
	assert.Equal(t, "B", projects[1].Name)
}
