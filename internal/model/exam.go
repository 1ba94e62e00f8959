package model

// Exam is one exam paper for a course. Several exams may exist per course;
// a session is assigned one of them at random.
type Exam struct {
	ID              string `json:"id"`
	CourseID        string `json:"course_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

// SelectCourseRequest is the payload for choosing the course to be examined on.
type SelectCourseRequest struct {
	CourseID string `json:"course_id" binding:"required,notblank,max=64"`
}
