package risk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"studentrisk/ml"
)

// Number is a best-effort numeric field: JSON numbers, numeric strings and
// null all coerce; absent fields stay zero. Anything else fails validation.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("value %q is not a number", s)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("value %s is not a number", data)
	}
	*n = Number(v)
	return nil
}

// Count coerces like Number but truncates to an integer, for the descriptive
// age and semester fields.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	var n Number
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	*c = Count(n)
	return nil
}

// PredictRequest is the typed shape of the POST /predict payload. Every
// field is optional; the six features default to zero.
type PredictRequest struct {
	Name     string `json:"name"`
	Age      Count  `json:"age"`
	Gender   string `json:"gender"`
	Semester Count  `json:"semester"`

	PreviousGPA      Number `json:"previousGPA"`
	Attendance       Number `json:"attendance"`
	AssignmentScores Number `json:"assignmentScores"`
	StudyHours       Number `json:"studyHours"`
	MidtermScores    Number `json:"midtermScores"`
	LMSActivity      Number `json:"lmsActivity"`
}

// ParseRequest decodes and sanitizes a request body. Coercion failures come
// back wrapped in ErrValidation.
func ParseRequest(body []byte) (*PredictRequest, error) {
	req := &PredictRequest{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	// Free-form text arrives from browsers in whatever normalization form
	// the platform produced; store NFC so records compare consistently.
	req.Name = norm.NFC.String(strings.TrimSpace(req.Name))
	if req.Name == "" {
		req.Name = "Unknown"
	}
	req.Gender = norm.NFC.String(strings.TrimSpace(req.Gender))
	return req, nil
}

// Features assembles the coerced values in the canonical model order.
func (r *PredictRequest) Features() ml.StudentFeatures {
	return ml.StudentFeatures{
		PreviousGPA:      float64(r.PreviousGPA),
		Attendance:       float64(r.Attendance),
		AssignmentScores: float64(r.AssignmentScores),
		StudyHours:       float64(r.StudyHours),
		MidtermScores:    float64(r.MidtermScores),
		LMSActivity:      float64(r.LMSActivity),
	}
}
