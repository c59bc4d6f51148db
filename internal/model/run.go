package model

import (
	"time"
)

// Stage identifies one phase of the linear pipeline.
type Stage string

const (
	StageCSV   Stage = "csv"
	StageGeo   Stage = "geo"
	StageRoute Stage = "route"
	StageMap   Stage = "map"

	// StageSettings is a legacy alias kept for old clients; it always
	// redirects to StageMap.
	StageSettings Stage = "settings"
)

// stageOrder gives the strict progression of the pipeline.
var stageOrder = map[Stage]int{
	StageCSV:   0,
	StageGeo:   1,
	StageRoute: 2,
	StageMap:   3,
}

// CanonicalStage remaps alias stage ids onto the four canonical stages.
// Unknown ids are reported so the orchestrator can reject the transition.
func CanonicalStage(s Stage) (Stage, bool) {
	if s == StageSettings {
		return StageMap, true
	}
	_, ok := stageOrder[s]
	return s, ok
}

// Index returns the position of a canonical stage in the pipeline, or -1.
func (s Stage) Index() int {
	if i, ok := stageOrder[s]; ok {
		return i
	}
	return -1
}

// RunStatus tracks the lifecycle of an audit run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusGeocoding RunStatus = "geocoding"
	RunStatusRouting   RunStatus = "routing"
	RunStatusRendering RunStatus = "rendering"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// RunState is the single aggregate threaded through the pipeline stages.
// It is owned and mutated exclusively by the orchestrator; stages receive
// the slice they need and return deltas.
type RunState struct {
	CurrentStage  Stage              `json:"current_stage"`
	RawRows       [][]string         `json:"raw_rows,omitempty"`
	AddressPairs  []AddressPair      `json:"address_pairs,omitempty"`
	GeocodedTrips []GeocodedTrip     `json:"geocoded_trips,omitempty"`
	Routes        []RouteResult      `json:"routes,omitempty"`
	Isochrones    []IsochronePolygon `json:"isochrones,omitempty"`
}

// StateDelta is the partial update a stage hands back on completion.
// Nil fields leave the corresponding run-state field untouched.
type StateDelta struct {
	RawRows       [][]string
	AddressPairs  []AddressPair
	GeocodedTrips []GeocodedTrip
	Routes        []RouteResult
	Isochrones    []IsochronePolygon
}

// Transition is the stage-completion event: a delta to merge plus the
// target stage id.
type Transition struct {
	Data StateDelta
	Next Stage
}

// Merge applies a delta to the run state. Fields from earlier stages are
// retained and stay visible to later stages.
func (s *RunState) Merge(d StateDelta) {
	if d.RawRows != nil {
		s.RawRows = d.RawRows
	}
	if d.AddressPairs != nil {
		s.AddressPairs = d.AddressPairs
	}
	if d.GeocodedTrips != nil {
		s.GeocodedTrips = d.GeocodedTrips
	}
	if d.Routes != nil {
		s.Routes = d.Routes
	}
	if d.Isochrones != nil {
		s.Isochrones = d.Isochrones
	}
}

// StageSummary records the outcome of one stage for the end-of-run tally.
type StageSummary struct {
	Stage      Stage          `json:"stage"`
	Attempted  int            `json:"attempted"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	DurationMs int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Run is one persisted pipeline execution.
type Run struct {
	ID        string         `json:"id"`
	SiteName  string         `json:"site_name,omitempty"`
	City      string         `json:"city,omitempty"`
	Status    RunStatus      `json:"status"`
	Summaries []StageSummary `json:"summaries,omitempty"`
	State     *RunState      `json:"state,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
