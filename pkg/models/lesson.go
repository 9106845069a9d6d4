package models

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind is the kind of media a lesson or notification carries
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// ParseMediaKind converts user input into a MediaKind
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(s))) {
	case MediaPhoto:
		return MediaPhoto, nil
	case MediaVideo:
		return MediaVideo, nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// Lesson is one step of a course
type Lesson struct {
	ID         int64     `json:"id" db:"id"`
	CourseID   int64     `json:"course_id" db:"course_id"`
	Title      string    `json:"title" db:"title"`
	OrderIndex int       `json:"order_index" db:"order_index"`
	MediaKind  MediaKind `json:"media_kind" db:"media_kind"`
	MediaURL   string    `json:"media_url" db:"media_url"`
	Caption    string    `json:"caption" db:"caption"`
	ButtonText string    `json:"button_text" db:"button_text"` // Optional call-to-action label
	ButtonURL  string    `json:"button_url" db:"button_url"`   // Optional call-to-action link
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	Test       *Test     `json:"test,omitempty" db:"-"` // At most one test per lesson
}

// CallToAction returns the lesson's link button if both parts are set
func (l *Lesson) CallToAction() (text, url string, ok bool) {
	if l.ButtonText == "" || l.ButtonURL == "" {
		return "", "", false
	}
	return l.ButtonText, l.ButtonURL, true
}

// HasTest reports whether a quiz gates progression past this lesson
func (l *Lesson) HasTest() bool {
	return l != nil && l.Test != nil
}

// DisplayCaption falls back to the title when no caption was authored
func (l *Lesson) DisplayCaption() string {
	if l.Caption != "" {
		return l.Caption
	}
	return l.Title
}
