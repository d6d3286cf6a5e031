package hub

import (
	"context"
	"strings"
)

// maxDisplayNameLength bounds the name shown next to uploaded materials.
const maxDisplayNameLength = 100

// UpdateProfile sets the display name of the current caller. An empty name
// falls back to the name carried by the caller's identity.
func (h *Hub) UpdateProfile(ctx context.Context, fullName string) (*Profile, error) {
	identity, err := currentIdentity(ctx, h.identity, h.callTimeout, h.logger)
	if err != nil {
		return nil, err
	}

	name := cleanName(fullName)
	if name == "" {
		name = cleanName(identity.DisplayName)
	}
	if name == "" {
		return nil, &ValidationError{MissingFields: []string{"full_name"}}
	}
	if len([]rune(name)) > maxDisplayNameLength {
		return nil, &ValidationError{Invalid: []string{"full_name"}}
	}

	p := &Profile{UserID: identity.ID, FullName: name}
	callCtx, cancel := withTimeout(ctx, h.callTimeout)
	defer cancel()
	if err := h.repository.UpsertProfile(callCtx, p); err != nil {
		h.logger.Error("Failed to update profile", "user_id", identity.ID, "err", err)
		return nil, err
	}
	return p, nil
}

// cleanName trims a display name and collapses runs of whitespace.
func cleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
