// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"pagebuilder/internal/models"
)

// UserRepository looks up accounts. FindByID returns (nil, nil) when the
// user does not exist.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// Account serves the authenticated user's own record.
type Account struct {
	users UserRepository
}

// NewAccount creates the account handler group.
func NewAccount(users UserRepository) *Account {
	return &Account{users: users}
}

// Me returns the user the bearer token was issued to. A token for a user
// that no longer exists is treated as unauthenticated.
func (a *Account) Me(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := a.users.FindByID(r.Context(), who.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if u == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
