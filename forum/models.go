// forum/models.go
package forum

import (
	"time"
)

// User is an account that can own posts. Exactly one of PasswordHash or
// GoogleID is set at creation: local signups get a hash, Google logins get
// the provider's stable subject id.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	GoogleID     *string   `json:"google_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Post is a question with an append-only list of answers. OwnerUsername is a
// snapshot taken at compose time, not a live reference.
type Post struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Answers       []Answer  `json:"answers"`
	CreatedAt     time.Time `json:"created_at"`
}

// Answer has no identity of its own; it lives inside a Post's answers column
// and its position there is its insertion order.
type Answer struct {
	Title string `json:"answerTitle"`
	Body  string `json:"answerBody"`
	Link  string `json:"link"`
}
