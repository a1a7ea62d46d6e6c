package userstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bffhd/pkg/permparse"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutUser(User{ID: "alice", Roles: []string{"members"}}))

	u, ok, err := s.GetUser("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"members"}, u.Roles)

	_, ok, err = s.GetUser("nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetAndVerifyPassword(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetPassword("alice", "hunter2"))

	match, known, err := s.VerifyPassword("alice", "hunter2")
	require.NoError(t, err)
	assert.True(t, known)
	assert.True(t, match)

	match, known, err = s.VerifyPassword("alice", "wrong")
	require.NoError(t, err)
	assert.True(t, known)
	assert.False(t, match)

	_, known, err = s.VerifyPassword("bob", "whatever")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestSetPasswordPreconditions(t *testing.T) {
	s := openTestStore(t)

	assert.Error(t, s.SetPassword("", "hunter2"))
	assert.Error(t, s.SetPassword("alice", ""))

	tooLong := make([]byte, 1025)
	assert.Error(t, s.SetPassword("alice", string(tooLong)))
}

func TestDeletePasswordIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetPassword("alice", "hunter2"))

	removed, err := s.DeletePassword("alice")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeletePassword("alice")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPutRoleRejectsBadRule(t *testing.T) {
	s := openTestStore(t)
	err := s.PutRole("members", Role{Name: "members", Permissions: []string{"*"}})
	assert.Error(t, err)
}

// TestS1Check is scenario S1 from spec.md §8: alice with role "members"
// holding Base(lab.laser.write) passes a check for lab.laser.write.
func TestS1Check(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutRole("members", Role{
		Name:        "members",
		Permissions: []string{"lab.laser.write"},
	}))
	require.NoError(t, s.PutUser(User{ID: "alice", Roles: []string{"members"}}))

	ok, err := s.Check("alice", "lab.laser.write")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Check("alice", "lab.laser.manage")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestS2CheckDenied is scenario S2: bob has no roles, so every check
// fails.
func TestS2CheckDenied(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutUser(User{ID: "bob"}))

	ok, err := s.Check("bob", "lab.laser.write")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestRoleDAGCycleTerminates is invariant 5 from spec.md §8: check(user,
// perm) terminates on a cyclic role graph.
func TestRoleDAGCycleTerminates(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutRole("a", Role{Name: "a", Parents: []string{"b"}}))
	require.NoError(t, s.PutRole("b", Role{Name: "b", Parents: []string{"a"}, Permissions: []string{"lab.laser.write"}}))
	require.NoError(t, s.PutUser(User{ID: "alice", Roles: []string{"a"}}))

	done := make(chan struct{})
	var ok bool
	var err error
	go func() {
		ok, err = s.Check("alice", "lab.laser.write")
		close(done)
	}()

	select {
	case <-done:
		require.NoError(t, err)
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Check did not terminate on a cyclic role graph")
	}
}

func TestResolveRulesFlattensDAG(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutRole("base", Role{Name: "base", Permissions: []string{"lab.laser.disclose"}}))
	require.NoError(t, s.PutRole("members", Role{
		Name:        "members",
		Parents:     []string{"base"},
		Permissions: []string{"lab.laser.write"},
	}))
	require.NoError(t, s.PutUser(User{ID: "alice", Roles: []string{"members"}}))

	rules, err := s.ResolveRules("alice")
	require.NoError(t, err)
	require.Len(t, rules, 2)

	var matched, disclosed bool
	for _, r := range rules {
		if r.Matches("lab.laser.write") {
			matched = true
		}
		if r.Matches("lab.laser.disclose") {
			disclosed = true
		}
	}
	assert.True(t, matched)
	assert.True(t, disclosed)
}

func TestResolveRulesUnknownUser(t *testing.T) {
	s := openTestStore(t)
	rules, err := s.ResolveRules("ghost")
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestResolveRulesCycleTerminates(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutRole("a", Role{Name: "a", Parents: []string{"b"}}))
	require.NoError(t, s.PutRole("b", Role{Name: "b", Parents: []string{"a"}, Permissions: []string{"lab.laser.write"}}))
	require.NoError(t, s.PutUser(User{ID: "alice", Roles: []string{"a"}}))

	done := make(chan struct{})
	var rules []permparse.Rule
	var err error
	go func() {
		rules, err = s.ResolveRules("alice")
		close(done)
	}()

	select {
	case <-done:
		require.NoError(t, err)
		require.Len(t, rules, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("ResolveRules did not terminate on a cyclic role graph")
	}
}
