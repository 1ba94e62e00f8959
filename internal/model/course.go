package model

// Course is an examinable course from the record store.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Enrollment links a student to a course they may be examined on.
type Enrollment struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}
