package synthesis

// Stage names a step of the per-pair pipeline
type Stage string

const (
	StageDiameters  Stage = "diameters"
	StageSeeding    Stage = "seeding"
	StageAdvection  Stage = "advection"
	StageProjection Stage = "projection"
	StageRender1    Stage = "render-1"
	StageRender2    Stage = "render-2"
	StagePairDone   Stage = "pair-done"
)

// stagesPerPair is the number of progress steps in one pair
const stagesPerPair = 5

// Event reports pipeline progress
type Event struct {
	// Pair is the zero-based index of the pair being generated
	Pair int `json:"pair"`

	// Pairs is the total number of pairs in the run
	Pairs int `json:"pairs"`

	// Stage is the step that just completed
	Stage Stage `json:"stage"`

	// Fraction is the overall run progress in [0, 1]
	Fraction float64 `json:"fraction"`
}

// Progress receives events on the goroutine that called Run
type Progress func(Event)

// fraction returns the overall progress after step of pair has completed.
// step counts completed stages of the pair and may be fractional while rendering.
func fraction(pair, pairs int, step float64) float64 {
	if pairs <= 0 {
		return 1
	}
	f := (float64(pair) + step/stagesPerPair) / float64(pairs)
	if f > 1 {
		f = 1
	}
	return f
}
