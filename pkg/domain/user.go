package domain

type UserRole int

const (
	RegularUser UserRole = iota
	Moderator
	Admin
)

type User struct {
	nick string
	id   string
	role UserRole
}

func NewUser(nick string, id string, role UserRole) *User {
	return &User{nick: nick, id: id, role: role}
}

func (u *User) Nick() string {
	return u.nick
}

func (u *User) Id() string {
	return u.id
}

func (u *User) Role() UserRole {
	return u.role
}

// Is compares ids, or nicks when neither user has an id.
func (u *User) Is(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	if u.id == "" && other.id == "" {
		return u.nick == other.nick
	}
	return u.id == other.id
}
