package models

import "fmt"

// User is a backend account. The client only ever creates guest users.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	CreatedAt Timestamp `json:"created_at"`
}

func (u User) Validate() error {
	if u.ID <= 0 {
		return fmt.Errorf("user: invalid id %d", u.ID)
	}
	if u.Username == "" {
		return fmt.Errorf("user %d: empty username", u.ID)
	}
	return nil
}

// UserCreate is the body of POST /users/ and POST /users/ensure.
type UserCreate struct {
	Username string `json:"username"`
}

// PingResponse is the liveness payload of GET /.
type PingResponse struct {
	Message string `json:"message"`
}
