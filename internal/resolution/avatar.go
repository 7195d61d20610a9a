package resolution

import "idlens/internal/identity/models"

// ProjectAvatar is the avatar to display for id: its AvatarURL, or "" when
// there is no identity.
func ProjectAvatar(id *models.Identity) string {
	if id == nil {
		return ""
	}
	return id.AvatarURL
}
