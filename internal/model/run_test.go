package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalStage_SettingsAlias(t *testing.T) {
	s, ok := CanonicalStage(StageSettings)
	assert.True(t, ok)
	assert.Equal(t, StageMap, s)
}

func TestCanonicalStage_Unknown(t *testing.T) {
	_, ok := CanonicalStage(Stage("step-pdf"))
	assert.False(t, ok)
}

func TestStageIndex_Ordering(t *testing.T) {
	assert.Less(t, StageCSV.Index(), StageGeo.Index())
	assert.Less(t, StageGeo.Index(), StageRoute.Index())
	assert.Less(t, StageRoute.Index(), StageMap.Index())
	assert.Equal(t, -1, StageSettings.Index())
}

func TestRunStateMerge_RetainsEarlierFields(t *testing.T) {
	state := &RunState{}

	state.Merge(StateDelta{AddressPairs: []AddressPair{
		{EmployeeAddress: "1 Rue A Paris 75001", EmployerAddress: "Lyon Acme"},
	}})
	state.Merge(StateDelta{GeocodedTrips: []GeocodedTrip{{ID: "employé a1"}}})

	// Earlier stage data stays visible after later merges.
	assert.Len(t, state.AddressPairs, 1)
	assert.Len(t, state.GeocodedTrips, 1)

	// Nil fields leave existing data untouched.
	state.Merge(StateDelta{Routes: []RouteResult{{Status: RouteSuccess}}})
	assert.Len(t, state.AddressPairs, 1)
	assert.Len(t, state.GeocodedTrips, 1)
	assert.Len(t, state.Routes, 1)
}

func TestGeoPointValid(t *testing.T) {
	assert.True(t, GeoPoint{Lat: 44.83, Lon: -0.57}.Valid())
	assert.False(t, GeoPoint{Lat: 91, Lon: 0}.Valid())
	assert.False(t, GeoPoint{Lat: 0, Lon: -181}.Valid())
}

func TestGeoPointKey_CollapsesIdenticalLocations(t *testing.T) {
	a := GeoPoint{Lat: 45.7640431, Lon: 4.8356791}
	b := GeoPoint{Lat: 45.7640431, Lon: 4.8356791, Source: "nominatim"}
	assert.Equal(t, a.Key(), b.Key(), "source must not affect the dedupe key")
}
