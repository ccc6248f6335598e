package repository

import (
	"context"

	"github.com/edukit/edukit/internal/db"
	"github.com/edukit/edukit/internal/model"
)

func (s *Store) ListStudents(ctx context.Context, q db.Querier, limit int) ([]model.Student, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := q.Query(ctx, `
		SELECT id, full_name, email, class_name
		FROM students
		ORDER BY full_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var st model.Student
		if err := rows.Scan(&st.ID, &st.FullName, &st.Email, &st.ClassName); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

func (s *Store) ListTeachers(ctx context.Context, q db.Querier, limit int) ([]model.Teacher, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := q.Query(ctx, `
		SELECT id, full_name, email, subject
		FROM teachers
		ORDER BY full_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []model.Teacher
	for rows.Next() {
		var te model.Teacher
		if err := rows.Scan(&te.ID, &te.FullName, &te.Email, &te.Subject); err != nil {
			return nil, err
		}
		teachers = append(teachers, te)
	}
	return teachers, rows.Err()
}
