package service

import (
	"context"
	"errors"

	"github.com/ruet-portal/portal-backend/internal/model"
	"github.com/ruet-portal/portal-backend/internal/repository"
)

// DueItem is one line of a student's outstanding balance.
type DueItem struct {
	Title  string `json:"title"`
	Amount int64  `json:"amount"`
}

type Due struct {
	Total int64     `json:"total"`
	Items []DueItem `json:"items"`
}

// StudentProfile is the public view of a student.  Due is only filled for
// single-student lookups.
type StudentProfile struct {
	StudentID  string  `json:"studentId"`
	Name       string  `json:"name"`
	Dept       string  `json:"dept"`
	Hall       *string `json:"hall"`
	Room       *string `json:"room"`
	Email      string  `json:"email"`
	Verified   bool    `json:"verified"`
	HallFee    int64   `json:"hallFee"`
	LibraryFee int64   `json:"libraryFee"`
	DeptFee    int64   `json:"deptFee"`
	Due        *Due    `json:"due,omitempty"`
}

type StudentService struct {
	students *repository.StudentRepo
}

func NewStudentService(students *repository.StudentRepo) *StudentService {
	return &StudentService{students: students}
}

// Get returns the profile with the three-item fee breakdown.
func (s *StudentService) Get(ctx context.Context, id string) (*StudentProfile, error) {
	st, err := s.students.GetByID(ctx, id)
	if errors.Is(err, repository.ErrStudentNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}
	p := profile(*st)
	p.Due = &Due{
		Total: st.TotalDue(),
		Items: []DueItem{
			{Title: "Hall Fee", Amount: p.HallFee},
			{Title: "Library Fine", Amount: p.LibraryFee},
			{Title: "Department Fee", Amount: p.DeptFee},
		},
	}
	return &p, nil
}

// List returns all students ordered by id, without Due.
func (s *StudentService) List(ctx context.Context) ([]StudentProfile, error) {
	all, err := s.students.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StudentProfile, 0, len(all))
	for _, st := range all {
		out = append(out, profile(st))
	}
	return out, nil
}

func profile(st model.Student) StudentProfile {
	p := StudentProfile{
		StudentID:  st.ID,
		Name:       st.Name,
		Dept:       st.Dept,
		Email:      st.Email,
		Verified:   st.Verified,
		HallFee:    st.HallFee.Int64,
		LibraryFee: st.LibraryFee.Int64,
		DeptFee:    st.DeptFee.Int64,
	}
	if st.Hall.Valid {
		p.Hall = &st.Hall.String
	}
	if st.Room.Valid {
		p.Room = &st.Room.String
	}
	return p
}
