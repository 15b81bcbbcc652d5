/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/Seednode/waterrock/store"
)

// AdminRole grants access to the admin console.
const AdminRole = "admin"

type User struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Active   bool   `json:"active"`
	password string
}

func (u User) IsAdmin() bool {
	return u.Role == AdminRole
}

func UserFromDoc(d store.Doc) User {
	u := User{
		ID:       d.ID,
		Role:     d.Fields.String("role"),
		Username: d.Fields.String("username"),
		Active:   !d.Fields.Has("active") || d.Fields.Bool("active"),
		password: d.Fields.String("password"),
	}
	if u.Role == "" {
		u.Role = u.ID
	}
	if u.Username == "" {
		u.Username = u.Role
	}

	return u
}

type Users struct {
	store store.Store
}

func NewUsers(s store.Store) *Users {
	return &Users{store: s}
}

// Authenticate returns the first active user whose password matches. The
// error never says which check failed.
func (us *Users) Authenticate(ctx context.Context, password string) (User, error) {
	if password == "" {
		return User{}, ErrAuthDenied
	}

	users, err := us.list(ctx)
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrAuthDenied, err)
	}

	for _, u := range users {
		if !u.Active || u.password == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(u.password), []byte(password)) == 1 {
			return u, nil
		}
	}

	return User{}, ErrAuthDenied
}

func (us *Users) List(ctx context.Context) ([]User, error) {
	return us.list(ctx)
}

func (us *Users) Get(ctx context.Context, id string) (User, error) {
	doc, err := us.store.Get(ctx, UsersCollection, id)
	if err != nil {
		return User{}, err
	}

	return UserFromDoc(doc), nil
}

// Save merges data into the user record keyed by id. The role always
// matches the id.
func (us *Users) Save(ctx context.Context, id string, data store.Fields) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("missing user id")
	}

	patch := store.Fields{}
	for k, v := range data {
		patch[k] = v
	}
	patch["role"] = id

	return us.store.Set(ctx, UsersCollection, id, patch, true)
}

// Add creates or replaces an active user whose role and username are both
// role. The password defaults to the role.
func (us *Users) Add(ctx context.Context, role, password string) error {
	if password == "" {
		password = role
	}

	return us.Save(ctx, role, store.Fields{
		"username": role,
		"password": password,
		"active":   true,
	})
}

func (us *Users) SetPassword(ctx context.Context, id, password string) error {
	if password == "" {
		return invalid("missing password")
	}

	if _, err := us.Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalid("unknown user %q", id)
		}
		return err
	}

	return us.Save(ctx, id, store.Fields{"password": password})
}

func (us *Users) list(ctx context.Context) ([]User, error) {
	docs, err := us.store.List(ctx, UsersCollection, "")
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, UserFromDoc(doc))
	}

	return users, nil
}
