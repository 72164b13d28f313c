// Package session holds the authenticated caller of a request. Parents and
// admins share one type discriminated by Role.
package session

import "github.com/pkg/errors"

type Role string

const (
	RoleParent Role = "parent"
	RoleAdmin  Role = "admin"
)

var ErrNoHousehold = errors.New("no household token")

type Session struct {
	Role           Role
	Subject        string // user or admin ID
	Email          string
	Username       string   // admins only
	HouseholdToken string   // parents only
	AdminRole      string   // admins only
	Branches       []string // admins only
}

func NewParent(userID, email, householdToken string) *Session {
	return &Session{Role: RoleParent, Subject: userID, Email: email, HouseholdToken: householdToken}
}

func NewAdmin(adminID, username, email, adminRole string, branches []string) *Session {
	return &Session{
		Role:      RoleAdmin,
		Subject:   adminID,
		Username:  username,
		Email:     email,
		AdminRole: adminRole,
		Branches:  branches,
	}
}

func (s *Session) IsParent() bool { return s != nil && s.Role == RoleParent }
func (s *Session) IsAdmin() bool  { return s != nil && s.Role == RoleAdmin }

// HouseholdFor resolves which household a token-gated admission page is about.
// A token in the URL wins so that shared links work without logging in;
// otherwise the logged-in parent's own household is used.
func HouseholdFor(urlToken string, s *Session) (string, error) {
	if urlToken != "" {
		return urlToken, nil
	}
	if s.IsParent() && s.HouseholdToken != "" {
		return s.HouseholdToken, nil
	}
	return "", ErrNoHousehold
}
