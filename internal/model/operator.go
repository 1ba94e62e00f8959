package model

// OperatorLoginRequest is the payload for operator authentication.
type OperatorLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// BeginSessionRequest is the payload identifying the student taking an exam.
// Blank ids are rejected by the exam workflow itself.
type BeginSessionRequest struct {
	StudentID string `json:"student_id" binding:"max=128"`
}
