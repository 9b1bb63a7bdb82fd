package domain

import (
	"strings"
	"sync"
)

// UserList is a set of users indexed by nick, safe for concurrent use.
type UserList struct {
	mu          sync.RWMutex
	users       []*User
	userIndexes map[string]int
}

func (l *UserList) All() []*User {
	l.mu.RLock()
	defer l.mu.RUnlock()
	list := make([]*User, len(l.users))
	copy(list, l.users)
	return list
}

func (l *UserList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.users)
}

func (l *UserList) Find(nick string) *User {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.userIndexes[nick]
	if !ok {
		return nil
	}
	return l.users[i]
}

// Add ignores users without a nick and replaces a user with the same nick.
func (l *UserList) Add(user *User) {
	if len(strings.TrimSpace(user.Nick())) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if i, ok := l.userIndexes[user.Nick()]; ok {
		l.users[i] = user
		return
	}
	l.users = append(l.users, user)
	l.userIndexes[user.Nick()] = len(l.users) - 1
}

func (l *UserList) Remove(user *User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.userIndexes[user.Nick()]
	if !ok {
		return
	}
	l.users = append(l.users[:i], l.users[i+1:]...)
	delete(l.userIndexes, user.Nick())
	for j := i; j < len(l.users); j++ {
		l.userIndexes[l.users[j].Nick()] = j
	}
}

func (l *UserList) Copy() *UserList {
	return NewUserList(l.All()...)
}

func NewUserList(users ...*User) *UserList {
	ul := &UserList{
		users:       []*User{},
		userIndexes: map[string]int{},
	}
	for _, user := range users {
		ul.Add(user)
	}
	return ul
}
