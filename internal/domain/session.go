package domain

import "time"

// Session is a conversation with its ordered history.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	History   []Message `json:"history"`
}

// Message is one entry of a session history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Exchange is a completed question and answer pair.
type Exchange struct {
	Question string
	Answer   string
}

// Exchanges pairs up the history into question/answer exchanges, oldest first.
// A trailing unpaired user message is dropped.
func (s *Session) Exchanges() []Exchange {
	if s == nil {
		return nil
	}
	var out []Exchange
	for i := 0; i+1 < len(s.History); i++ {
		if s.History[i].Role == RoleUser && s.History[i+1].Role == RoleAssistant {
			out = append(out, Exchange{Question: s.History[i].Content, Answer: s.History[i+1].Content})
			i++
		}
	}
	return out
}
