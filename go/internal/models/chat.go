package models

import "time"

// ChatMessage is one message on the town-wide chat channel.
type ChatMessage struct {
	ID        string    `json:"sid"`
	AuthorID  string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"dateCreated"`
}
