package auth

import (
	"bytes"
	"fmt"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/permparse"
	"github.com/cuemby/bffhd/pkg/value"
)

// PasswordVerifier is the password-check half of the User & Permission
// Store that PLAIN depends on. *userstore.Store satisfies this
// structurally.
type PasswordVerifier interface {
	VerifyPassword(id, candidate string) (match, known bool, err error)
}

// PermissionChecker is the permission-check half of the User &
// Permission Store that PLAIN's act-as extension depends on.
// *userstore.Store satisfies this structurally.
type PermissionChecker interface {
	Check(userID string, perm permparse.Permission) (bool, error)
}

// plainMechanism implements SASL PLAIN (spec.md §4.8) plus the
// SUPPLEMENTED act-as authorization: if authzid differs from authcid,
// the substitution requires a bffh.act-as.<authzid> permission on
// authcid's roles.
type plainMechanism struct {
	passwords PasswordVerifier
	perms     PermissionChecker
}

// NewPlainFactory returns a Factory for the PLAIN mechanism, backed by
// passwords for credential checks and perms for the act-as extension.
func NewPlainFactory(passwords PasswordVerifier, perms PermissionChecker) Factory {
	return func() Mechanism {
		return &plainMechanism{passwords: passwords, perms: perms}
	}
}

func (m *plainMechanism) Step(incoming []byte) StepResult {
	parts := bytes.SplitN(incoming, []byte{0}, 3)
	if len(parts) != 3 {
		return StepResult{State: StateFailed, Err: bffherr.New(bffherr.KindParse, "auth: plain: expected authzid\\0authcid\\0password")}
	}
	authzid := string(parts[0])
	authcid := string(parts[1])
	password := string(parts[2])

	match, known, err := m.passwords.VerifyPassword(authcid, password)
	if err != nil {
		return StepResult{State: StateFailed, Err: err}
	}
	if !known || !match {
		return StepResult{State: StateFailed, Err: bffherr.ErrDenied}
	}

	user := authcid
	if authzid != "" && authzid != authcid {
		perm := permparse.Permission(fmt.Sprintf("bffh.act-as.%s", authzid))
		allowed, err := m.perms.Check(authcid, perm)
		if err != nil {
			return StepResult{State: StateFailed, Err: err}
		}
		if !allowed {
			return StepResult{State: StateFailed, Err: bffherr.ErrDenied}
		}
		user = authzid
	}

	return StepResult{State: StateDone, UserID: value.UserID(user)}
}
