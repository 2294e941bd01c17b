package risk

import (
	"errors"
	"testing"
)

type fakeModel struct {
	label int
	prob  float64
	err   error
	seen  []float64
}

func (f *fakeModel) Predict(features []float64) (int, float64, error) {
	f.seen = append([]float64(nil), features...)
	return f.label, f.prob, f.err
}

type memStore struct {
	records []Record
	err     error
}

func (m *memStore) SaveAssessment(rec *Record) error {
	if m.err != nil {
		return m.err
	}
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *rec)
	return nil
}

type memPublisher struct {
	published []Record
}

func (m *memPublisher) PublishAssessment(rec Record) {
	m.published = append(m.published, rec)
}

func TestBandFor(t *testing.T) {
	cases := []struct {
		prob float64
		want string
	}{
		{0.0, RiskHigh},
		{0.29999, RiskHigh},
		{0.3, RiskMedium},
		{0.59999, RiskMedium},
		{0.6, RiskLow},
		{0.75, RiskLow},
		{1.0, RiskLow},
	}
	for _, c := range cases {
		if got := BandFor(c.prob); got != c.want {
			t.Fatalf("BandFor(%f) = %q, want %q", c.prob, got, c.want)
		}
	}
}

func TestAssessHappyPath(t *testing.T) {
	model := &fakeModel{label: 1, prob: 0.756}
	store := &memStore{}
	pub := &memPublisher{}
	assessor := NewAssessor(model, store, pub, nil)

	req, err := ParseRequest([]byte(`{"name":"Ada","previousGPA":8.2,"attendance":90,"assignmentScores":85,"studyHours":20,"midtermScores":33,"lmsActivity":70}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := assessor.Assess(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RiskLevel != RiskLow {
		t.Fatalf("expected Low risk, got %q", result.RiskLevel)
	}
	if result.PassFailProb != 0.76 || result.Confidence != 0.76 {
		t.Fatalf("expected rounded probability 0.76, got %f / %f", result.PassFailProb, result.Confidence)
	}
	if result.PredictedGrade != 3.02 {
		t.Fatalf("expected rounded grade 3.02, got %f", result.PredictedGrade)
	}

	if len(store.records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(store.records))
	}
	rec := store.records[0]
	if rec.PassFailProb != 0.756 {
		t.Fatalf("stored probability should be unrounded, got %f", rec.PassFailProb)
	}
	if rec.PredictedGrade != 0.756*4.0 {
		t.Fatalf("stored grade should equal 4p unrounded, got %f", rec.PredictedGrade)
	}
	if rec.RiskLevel != RiskLow || rec.Name != "Ada" || rec.PreviousGPA != 8.2 {
		t.Fatalf("unexpected stored record: %+v", rec)
	}

	if len(model.seen) != 6 || model.seen[0] != 8.2 || model.seen[5] != 70 {
		t.Fatalf("model saw wrong feature vector: %v", model.seen)
	}
	if len(pub.published) != 1 || pub.published[0].ID != 1 {
		t.Fatalf("expected published record with id, got %+v", pub.published)
	}
}

func TestAssessGradeIsFourTimesProbability(t *testing.T) {
	for _, prob := range []float64{0.0, 0.1234, 0.3, 0.5, 0.6, 0.987, 1.0} {
		store := &memStore{}
		assessor := NewAssessor(&fakeModel{prob: prob}, store, nil, nil)
		if _, err := assessor.Assess(&PredictRequest{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := store.records[0].PredictedGrade; got != prob*4.0 {
			t.Fatalf("grade %f is not 4 * %f", got, prob)
		}
	}
}

func TestAssessModelUnavailable(t *testing.T) {
	assessor := NewAssessor(nil, &memStore{}, nil, nil)
	_, err := assessor.Assess(&PredictRequest{})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if assessor.ModelLoaded() {
		t.Fatal("ModelLoaded should be false")
	}
}

func TestAssessPersistenceFailure(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	pub := &memPublisher{}
	assessor := NewAssessor(&fakeModel{prob: 0.5}, store, pub, nil)

	_, err := assessor.Assess(&PredictRequest{})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(pub.published) != 0 {
		t.Fatal("failed insert must not publish")
	}
}

func TestAssessScoringFailureLeavesNoRecord(t *testing.T) {
	store := &memStore{}
	assessor := NewAssessor(&fakeModel{err: errors.New("bad tree")}, store, nil, nil)

	if _, err := assessor.Assess(&PredictRequest{}); err == nil {
		t.Fatal("expected scoring error")
	}
	if len(store.records) != 0 {
		t.Fatal("scoring failure must not persist a record")
	}
}
