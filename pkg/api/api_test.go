package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/bffhd/pkg/auth"
	"github.com/cuemby/bffhd/pkg/resource"
	"github.com/cuemby/bffhd/pkg/store"
	"github.com/cuemby/bffhd/pkg/userstore"
)

// newTestServer wires a real (temp-bbolt-backed) registry, userstore and
// auth registry together, mirroring pkg/session/session_test.go's
// newTestRegistry helper.
func newTestServer(t *testing.T) (*Server, *resource.Resource) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := resource.NewRegistry()
	res, err := registry.Add("laser", 1, "Laser Cutter", resource.Privileges{
		Disclose: "lab.laser.disclose",
		Read:     "lab.laser.read",
		Write:    "lab.laser.write",
		Manage:   "lab.laser.manage",
	}, st, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go res.Engine.Run(ctx)

	users, err := userstore.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { users.Close() })

	require.NoError(t, users.PutRole("members", userstore.Role{
		Name:        "members",
		Permissions: []string{"lab.laser.write", "lab.laser.read", "lab.laser.disclose"},
	}))
	require.NoError(t, users.PutUser(userstore.User{ID: "alice", Roles: []string{"members"}}))
	require.NoError(t, users.SetPassword("alice", "s3cret"))

	mechanisms := auth.NewRegistry()
	mechanisms.Register("PLAIN", auth.NewPlainFactory(users, users))

	return NewServer(registry, users, mechanisms), res
}
