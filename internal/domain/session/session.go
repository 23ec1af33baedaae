package session

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	JSONURL   string    `json:"jsonUrl,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public is a published session joined with its owner's email for the
// public listing.
type Public struct {
	Session
	OwnerEmail string `json:"ownerEmail"`
}

// SaveRequest is the wire body shared by save-draft and publish. Tags arrive
// as one comma-delimited string.
type SaveRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Tags    string `json:"tags"`
	JSONURL string `json:"jsonUrl" binding:"omitempty,max=2048"`
}

// Fields is the validated, parsed form of a SaveRequest handed to storage.
type Fields struct {
	Title   string
	Tags    []string
	JSONURL string
}

// ParseTags splits a comma-delimited tag string, trimming each element.
// Elements are kept as entered, empty ones included; only an empty string
// yields no tags.
func ParseTags(raw string) []string {
	if raw == "" {
		return []string{}
	}

	parts := strings.Split(raw, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}

	return parts
}

// JoinTags is the inverse used when seeding an editor from a stored session.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// HasTitle reports whether title has any non-whitespace content.
func HasTitle(title string) bool {
	return strings.TrimSpace(title) != ""
}

func (r SaveRequest) Fields() Fields {
	return Fields{
		Title:   r.Title,
		Tags:    ParseTags(r.Tags),
		JSONURL: strings.TrimSpace(r.JSONURL),
	}
}
