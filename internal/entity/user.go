package entity

// User is one credential record. Password holds the bcrypt hash, never the
// plain text.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
