package api

import "taskflow-api/domain"

// Request bodies are capped well above any realistic task payload.
const requestBodyMaxSize = 64 * 1024 // 64 KiB

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type statusRequest struct {
	Status domain.Status `json:"status"`
}

type dashboardResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Stats domain.Stats  `json:"stats"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    *userPayload `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
}
