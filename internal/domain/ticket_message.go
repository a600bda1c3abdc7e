package domain

import "time"

// Comment is an entry in a ticket's append-only thread.
type Comment struct {
	ID          ID           `json:"id"`
	TicketID    ID           `json:"ticket_id"`
	AuthorID    ID           `json:"author_id"`
	AuthorName  string       `json:"author_name"`
	Content     string       `json:"content"`
	IsInternal  bool         `json:"is_internal"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Attachment stores metadata for an uploaded file. Upload itself happens
// outside the console.
type Attachment struct {
	ID        ID     `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url"`
}

// Tag is a label known to the backend for a ticket.
type Tag struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}
