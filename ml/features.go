package ml

// The six academic indicators the classifier consumes, in training order.
// The artifact embeds this list and LoadArtifact refuses any other ordering,
// so trainer and server cannot silently disagree on feature alignment.

func FeatureNames() []string {
	return []string{
		"Previous_GPA",
		"Attendance",
		"Assignment_Scores",
		"Study_Hours",
		"Midterm_Scores",
		"LMS_Activity",
	}
}

// StudentFeatures holds one coerced feature vector for a single student.
type StudentFeatures struct {
	PreviousGPA      float64
	Attendance       float64
	AssignmentScores float64
	StudyHours       float64
	MidtermScores    float64
	LMSActivity      float64
}

// FeatureVector flattens the struct into the canonical column order.
func FeatureVector(f StudentFeatures) []float64 {
	return []float64{
		f.PreviousGPA,
		f.Attendance,
		f.AssignmentScores,
		f.StudyHours,
		f.MidtermScores,
		f.LMSActivity,
	}
}
