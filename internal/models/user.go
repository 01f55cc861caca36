package models

// User is an account known to the authentication layer.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"display_name"`
}
