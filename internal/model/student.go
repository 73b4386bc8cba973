package model

import "time"

// Student represents a student user.
type Student struct {
	ID           int       `json:"id"`
	StudentCode  string    `json:"student_code"`
	Name         string    `json:"name"`
	Grade        string    `json:"grade"`
	Section      string    `json:"section"`
	Gender       string    `json:"gender,omitempty"`
	Age          *int      `json:"age,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	StudentCode string `json:"student_code" binding:"required,min=4,max=20"`
	Password    string `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// CreateStudentRequest is the payload for registering a new student account.
type CreateStudentRequest struct {
	StudentCode string `json:"student_code" binding:"required,min=4,max=20"`
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Grade       string `json:"grade" binding:"required,max=10"`
	Section     string `json:"section" binding:"required,max=10"`
	Gender      string `json:"gender" binding:"omitempty,oneof=male female other"`
	Age         *int   `json:"age" binding:"omitempty,min=5,max=100"`
	Password    string `json:"password" binding:"required,min=6,max=128"`
}
