package services

import (
	"regexp"
	"strings"

	"github.com/teamhub-dev/teamhub/internal/models"
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9._%+\-]+(?:@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})?)`)

// ResolveMentions returns the project participants named in text, in order of
// first mention. A mention is "@" followed by either the user's email or
// their name with spaces removed; both compare case-insensitively.
func ResolveMentions(text string, memberships []models.ProjectMembership) []uint {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	byHandle := make(map[string]uint, len(memberships)*2)
	for _, m := range memberships {
		if m.User.Email != "" {
			byHandle[strings.ToLower(m.User.Email)] = m.UserID
		}
		if handle := strings.ToLower(strings.ReplaceAll(m.User.Name, " ", "")); handle != "" {
			if _, taken := byHandle[handle]; !taken {
				byHandle[handle] = m.UserID
			}
		}
	}

	seen := make(map[uint]bool)
	var out []uint
	for _, match := range matches {
		handle := strings.ToLower(strings.TrimRight(match[1], ".,;:!?"))
		id, ok := byHandle[handle]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
