package domain

// QuestionRequest is the body of /ask and /ask-stream.
type QuestionRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// ClearSessionRequest is the body of /clear-session.
type ClearSessionRequest struct {
	SessionID string `json:"session_id"`
}

// Source is a retrieved document that contributed to an answer.
type Source struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Answer is the engine's result for one question.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// AskResponse is returned by the synchronous chat endpoint.
type AskResponse struct {
	Answer
	SessionID string `json:"session_id"`
}

// ClearSessionResponse is returned when a session was removed.
type ClearSessionResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// HistoryResponse carries a session history.
type HistoryResponse struct {
	Success   bool      `json:"success"`
	SessionID string    `json:"session_id"`
	History   []Message `json:"history"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Code      ErrorKind `json:"code"`
	Error     string    `json:"error"`
	SessionID string    `json:"session_id,omitempty"`
}

// Friend is an entry of the friends list.
type Friend struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ImageUploadResponse is returned after a session image is stored.
type ImageUploadResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
}
