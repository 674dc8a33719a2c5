// Package auth carries the caller identity into profile operations and
// checks the profile administration capability.
package auth

import (
	pkgerrors "qprofile/pkg/errors"
)

// CapabilityProfileAdmin allows creating and mutating quality profiles.
const CapabilityProfileAdmin = "profileadmin"

type UserSession interface {
	IsLoggedIn() bool
	Login() string
	HasCapability(capability string) bool
}

type userSession struct {
	login        string
	capabilities map[string]bool
}

func NewUserSession(login string, capabilities ...string) UserSession {
	caps := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		caps[c] = true
	}
	return &userSession{login: login, capabilities: caps}
}

func Anonymous() UserSession {
	return &userSession{}
}

func (s *userSession) IsLoggedIn() bool {
	return s.login != ""
}

func (s *userSession) Login() string {
	return s.login
}

func (s *userSession) HasCapability(capability string) bool {
	return s.IsLoggedIn() && s.capabilities[capability]
}

// CheckProfileAdmin fails with ErrUnauthorized when there is no identity and
// with ErrForbidden when the identity lacks CapabilityProfileAdmin.
func CheckProfileAdmin(s UserSession) error {
	if s == nil || !s.IsLoggedIn() {
		return pkgerrors.ErrUnauthorized
	}
	if !s.HasCapability(CapabilityProfileAdmin) {
		return pkgerrors.ErrForbidden.WithDetail("capability", CapabilityProfileAdmin)
	}
	return nil
}
