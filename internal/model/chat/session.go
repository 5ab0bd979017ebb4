package chat

import "time"

// Session captures one conversation, anonymous or tied to a member.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	UserName  string    `json:"userName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity carries the optional member identity used to personalize the
// welcome turn and populate the backend userId field. A nil Identity means
// an anonymous session.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
