package db

import (
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"

	"studentrisk/risk"
)

// Store owns the SQLite handle for risk assessment records. The schema is
// created on open; there are no migrations.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS students (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT,
        age INTEGER,
        gender TEXT,
        semester INTEGER,
        previous_gpa REAL,
        attendance REAL,
        assignment_scores REAL,
        study_hours REAL,
        midterm_scores REAL,
        lms_activity REAL,
        risk_level TEXT,
        predicted_grade REAL,
        pass_fail_prob REAL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}

	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAssessment inserts one record and fills in its assigned id.
func (s *Store) SaveAssessment(rec *risk.Record) error {
	if s == nil || s.db == nil {
		return errors.New("database not initialized")
	}
	result, err := s.db.Exec(`
        INSERT INTO students (
            name, age, gender, semester,
            previous_gpa, attendance, assignment_scores,
            study_hours, midterm_scores, lms_activity,
            risk_level, predicted_grade, pass_fail_prob, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.Age, rec.Gender, rec.Semester,
		rec.PreviousGPA, rec.Attendance, rec.AssignmentScores,
		rec.StudyHours, rec.MidtermScores, rec.LMSActivity,
		rec.RiskLevel, rec.PredictedGrade, rec.PassFailProb, rec.CreatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// ListAssessments returns every stored record in insertion order.
func (s *Store) ListAssessments() ([]risk.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := s.db.Query(`
        SELECT id, name, age, gender, semester,
               previous_gpa, attendance, assignment_scores,
               study_hours, midterm_scores, lms_activity,
               risk_level, predicted_grade, pass_fail_prob, created_at
        FROM students
        ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]risk.Record, 0)
	for rows.Next() {
		var rec risk.Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Age, &rec.Gender, &rec.Semester,
			&rec.PreviousGPA, &rec.Attendance, &rec.AssignmentScores,
			&rec.StudyHours, &rec.MidtermScores, &rec.LMSActivity,
			&rec.RiskLevel, &rec.PredictedGrade, &rec.PassFailProb, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
