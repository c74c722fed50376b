// Package domain contains the client's states and value types, without logic
// beyond transition tables.
package domain

import "strings"

// RoomID is a room name as the caller gave it.
type RoomID string

// JID addresses the room inside the room-namespace domain. Room namespaces
// are case-insensitive, so the local part is lowercased.
func (id RoomID) JID(muc string) string {
	if strings.Contains(string(id), "@") {
		return string(id)
	}
	local := strings.ToLower(string(id))
	if muc == "" {
		return local
	}
	return local + "@" + muc
}
