package types

import "time"

type User struct {
	ID        int64     `db:"id"`
	Subject   string    `db:"subject"`
	Username  string    `db:"username"`
	Email     *string   `db:"email"`
	Phone     *string   `db:"phone"`
	Firstname *string   `db:"firstname"`
	Surname   *string   `db:"surname"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (u *User) Contact() Contact {
	c := Contact{UserID: u.ID}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	return c
}

// Contact is how a user is reached by the notification dispatcher.
type Contact struct {
	UserID int64
	Email  string
	Phone  string
}

func (c Contact) Empty() bool {
	return c.Email == "" && c.Phone == ""
}
