package auth

import (
	"errors"
	"strings"

	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	OwnerCookie = "token"
	StaffCookie = "staff_token"
)

// Session is the verified identity behind a request or socket.
type Session struct {
	Kind         SessionKind
	SubjectID    string
	RestaurantID string
	Role         models.Role
	Name         string
}

var ErrInactiveStaff = errors.New("staff account is inactive")

// Authenticate verifies a raw token. Staff sessions are re-read from the
// staff table so a removed or deactivated member loses access immediately,
// and the tenant comes from the staff record rather than the token.
func Authenticate(secret, raw string) (*Session, error) {
	claims, err := ParseToken(secret, raw)
	if err != nil {
		return nil, err
	}

	switch claims.Kind {
	case KindOwner:
		return &Session{
			Kind:         KindOwner,
			SubjectID:    claims.SubjectID,
			RestaurantID: claims.RestaurantID,
			Role:         models.RoleOwner,
			Name:         claims.Email,
		}, nil
	case KindStaff:
		var member models.Staff
		if err := database.DB.First(&member, "id = ?", claims.SubjectID).Error; err != nil {
			return nil, ErrInvalidToken
		}
		if !member.Active {
			return nil, ErrInactiveStaff
		}
		return &Session{
			Kind:         KindStaff,
			SubjectID:    member.ID,
			RestaurantID: member.RestaurantID,
			Role:         member.Role,
			Name:         member.Name,
		}, nil
	}
	return nil, ErrInvalidToken
}

// staffRoutes are the path prefixes where the staff cookie wins when a
// browser holds both an owner and a staff session.
var staffRoutes = []string{"/api/kitchen", "/api/staff-auth"}

// TokenFromRequest looks for a bearer header first, then the session cookie
// that belongs to the route family.
func TokenFromRequest(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	first, second := OwnerCookie, StaffCookie
	for _, prefix := range staffRoutes {
		if strings.HasPrefix(c.Path(), prefix) {
			first, second = StaffCookie, OwnerCookie
			break
		}
	}
	if v := c.Cookies(first); v != "" {
		return v
	}
	return c.Cookies(second)
}
