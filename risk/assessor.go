package risk

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"studentrisk/ml"
)

// Risk bands derived from the pass probability.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// Record is one persisted risk assessment: the student's descriptive fields,
// the coerced inputs, and the derived outputs, unrounded. Records are
// append-only; nothing in the system updates or deletes them.
type Record struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	Gender           string    `json:"gender"`
	Semester         int       `json:"semester"`
	PreviousGPA      float64   `json:"previousGPA"`
	Attendance       float64   `json:"attendance"`
	AssignmentScores float64   `json:"assignmentScores"`
	StudyHours       float64   `json:"studyHours"`
	MidtermScores    float64   `json:"midtermScores"`
	LMSActivity      float64   `json:"lmsActivity"`
	RiskLevel        string    `json:"riskLevel"`
	PredictedGrade   float64   `json:"predictedGrade"`
	PassFailProb     float64   `json:"passFailProb"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Assessment is the response payload for one scored request, rounded to two
// decimal places. Confidence duplicates the pass probability.
type Assessment struct {
	PassFailProb   float64 `json:"passFailProb"`
	RiskLevel      string  `json:"riskLevel"`
	PredictedGrade float64 `json:"predictedGrade"`
	Confidence     float64 `json:"confidence"`
}

// Store persists assessment records.
type Store interface {
	SaveAssessment(rec *Record) error
}

// Publisher receives each record after it is persisted. Implementations must
// not block.
type Publisher interface {
	PublishAssessment(rec Record)
}

// Assessor runs the scoring pipeline. It is constructed once at startup with
// the loaded classifier and shared read-only by all requests.
type Assessor struct {
	model  ml.Classifier
	store  Store
	pub    Publisher
	logger *zap.Logger
}

// NewAssessor wires the pipeline. model may be nil when no artifact loaded;
// pub may be nil.
func NewAssessor(model ml.Classifier, store Store, pub Publisher, logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{model: model, store: store, pub: pub, logger: logger}
}

// ModelLoaded reports whether a classifier artifact was loaded at startup.
func (a *Assessor) ModelLoaded() bool {
	return a.model != nil
}

// Assess scores one request: classify, map the probability to a risk band,
// derive the grade, persist the record, and build the rounded response.
// The insert only happens after a successful score, so a scoring failure
// never leaves an orphaned record.
func (a *Assessor) Assess(req *PredictRequest) (*Assessment, error) {
	if a.model == nil {
		return nil, ErrModelUnavailable
	}

	features := ml.FeatureVector(req.Features())
	label, prob, err := a.model.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	band := BandFor(prob)
	grade := prob * 4.0

	rec := Record{
		Name:             req.Name,
		Age:              int(req.Age),
		Gender:           req.Gender,
		Semester:         int(req.Semester),
		PreviousGPA:      features[0],
		Attendance:       features[1],
		AssignmentScores: features[2],
		StudyHours:       features[3],
		MidtermScores:    features[4],
		LMSActivity:      features[5],
		RiskLevel:        band,
		PredictedGrade:   grade,
		PassFailProb:     prob,
		CreatedAt:        time.Now().UTC(),
	}
	if err := a.store.SaveAssessment(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if a.pub != nil {
		a.pub.PublishAssessment(rec)
	}

	a.logger.Info("assessment stored",
		zap.Int64("id", rec.ID),
		zap.String("risk_level", band),
		zap.Int("label", label),
		zap.Float64("pass_fail_prob", prob))

	return &Assessment{
		PassFailProb:   Round2(prob),
		RiskLevel:      band,
		PredictedGrade: Round2(grade),
		Confidence:     Round2(prob),
	}, nil
}

// BandFor maps a pass probability to a risk band. Thresholds are evaluated
// top-down; boundary values belong to the higher band.
func BandFor(prob float64) string {
	switch {
	case prob >= 0.6:
		return RiskLow
	case prob >= 0.3:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Round2 rounds to two decimal places, applied to response payloads and to
// records read back for listing. Stored values stay unrounded.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
