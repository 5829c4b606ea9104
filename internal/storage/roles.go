package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/hearth/internal/game/authority"
)

// Role constants for player privilege levels.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

var (
	// ErrInvalidRole is returned when an unrecognised role string is supplied.
	ErrInvalidRole = errors.New("invalid role")
	// ErrPlayerNotFound is returned when a snapshot has no player by the given name.
	ErrPlayerNotFound = errors.New("player not found")
)

// ValidRole reports whether role is a recognised privilege level.
func ValidRole(role string) bool {
	switch role {
	case RolePlayer, RoleAdmin:
		return true
	}
	return false
}

// RoleOf returns the role recorded for a player record.
func RoleOf(admin bool) string {
	if admin {
		return RoleAdmin
	}
	return RolePlayer
}

// SetRole changes the saved role of the named player in snap, matching the
// name case-insensitively, and returns the previous role.
//
// Postcondition: Returns ErrInvalidRole or ErrPlayerNotFound without
// modifying snap on failure.
func SetRole(snap authority.Snapshot, name, role string) (string, error) {
	if !ValidRole(role) {
		return "", fmt.Errorf("%w %q", ErrInvalidRole, role)
	}
	for _, p := range snap.Players {
		if p == nil || p.Player == nil || !strings.EqualFold(p.Name, name) {
			continue
		}
		old := RoleOf(p.Player.Admin)
		p.Player.Admin = role == RoleAdmin
		return old, nil
	}
	return "", fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
}
