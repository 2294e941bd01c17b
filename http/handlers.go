package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"studentrisk/risk"
)

// RecordLister is the read side of the record store used by GET /students.
type RecordLister interface {
	ListAssessments() ([]risk.Record, error)
}

// RegisterHandlers wires the three endpoints onto the mux. The assessor is
// shared, immutable state; every request goes through it independently.
func RegisterHandlers(mux *http.ServeMux, assessor *risk.Assessor, records RecordLister, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux.HandleFunc("GET /health", handleHealth(assessor))
	mux.HandleFunc("POST /predict", handlePredict(assessor, logger))
	mux.HandleFunc("GET /students", handleStudents(records))
}

func handleHealth(assessor *risk.Assessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":       "healthy",
			"model_loaded": assessor.ModelLoaded(),
		})
	}
}

func handlePredict(assessor *risk.Assessor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The model check comes before the body is touched so a missing
		// artifact is reported the same way for every payload.
		if !assessor.ModelLoaded() {
			writeError(w, http.StatusInternalServerError, "Model not loaded")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		req, err := risk.ParseRequest(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		assessment, err := assessor.Assess(req)
		if err != nil {
			if errors.Is(err, risk.ErrModelUnavailable) {
				writeError(w, http.StatusInternalServerError, "Model not loaded")
				return
			}
			logger.Warn("prediction failed", zap.Error(err))
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, assessment)
	}
}

func handleStudents(records RecordLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := records.ListAssessments()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// Stored values are unrounded; rounding is applied on read.
		for i := range list {
			list[i].PredictedGrade = risk.Round2(list[i].PredictedGrade)
			list[i].PassFailProb = risk.Round2(list[i].PassFailProb)
		}

		writeJSON(w, http.StatusOK, list)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
