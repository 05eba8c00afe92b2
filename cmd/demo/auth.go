package main

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/veldtlabs/steward/model"
)

// demoUser is the fixed demo principal.
type demoUser struct {
	email string
	name  string
}

func (u *demoUser) Identity() string    { return u.email }
func (u *demoUser) DisplayName() string { return u.name }

// staticAuth authenticates a fixed user table. Demo only.
type staticAuth struct {
	users map[string]staticAccount
}

type staticAccount struct {
	password string
	name     string
}

func newStaticAuth() *staticAuth {
	return &staticAuth{users: map[string]staticAccount{
		"admin@example.com": {password: "password", name: "Demo Admin"},
	}}
}

func (a *staticAuth) Authenticate(_ context.Context, identity, password string) (model.User, error) {
	account, ok := a.users[identity]
	if !ok || subtle.ConstantTimeCompare([]byte(account.password), []byte(password)) != 1 {
		return nil, fmt.Errorf("auth: invalid credentials")
	}
	return &demoUser{email: identity, name: account.name}, nil
}

func (a *staticAuth) LoadUser(_ context.Context, identity string) (model.User, error) {
	account, ok := a.users[identity]
	if !ok {
		return nil, fmt.Errorf("auth: unknown user %q", identity)
	}
	return &demoUser{email: identity, name: account.name}, nil
}
