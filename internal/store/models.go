package store

import "time"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Source is one grounding citation attached to a model message. Insertion
// order is citation order.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Message is one turn's content. The ID is assigned at creation and is what
// the image-completion path uses to locate the message to amend.
type Message struct {
	ID                string   `json:"id"`
	Role              string   `json:"role"` // "user" or "model"
	Text              string   `json:"text"`
	IsError           bool     `json:"isError,omitempty"`
	GroundingSources  []Source `json:"groundingSources,omitempty"`
	GeneratedImageURL string   `json:"generatedImageUrl,omitempty"`
	IsGeneratingImage bool     `json:"isGeneratingImage,omitempty"`
}

// Conversation is a named, time-ordered sequence of messages. Title is
// derived once from the first user message and never changes; Date is bumped
// on every mutation of the message sequence.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Messages []Message `json:"messages"`
}
