package domain

// User is an account record. HashedPassword and Salt are absent together
// when password login is disabled for the account (email-code login only).
type User struct {
	ID             string `bson:"_id,omitempty" json:"id"`
	Email          string `bson:"email" json:"email"`
	DisplayName    string `bson:"display_name" json:"display_name"`
	HashedPassword []byte `bson:"hashed_password,omitempty" json:"-"`
	Salt           []byte `bson:"salt,omitempty" json:"-"`
	Pronouns       string `bson:"pronouns,omitempty" json:"pronouns,omitempty"`
}

// HasPassword reports whether password login is enabled for the account.
func (u *User) HasPassword() bool {
	return len(u.HashedPassword) > 0 && len(u.Salt) > 0
}

// SafeUser is the client-visible projection of a User.
type SafeUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Pronouns    string `json:"pronouns,omitempty"`
}

// Safe strips credential material from the record.
func (u *User) Safe() SafeUser {
	return SafeUser{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Pronouns:    u.Pronouns,
	}
}
