package userstore

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/permparse"
)

var (
	bucketUsers     = []byte("users")
	bucketPasswords = []byte("passwords")
	bucketRoles     = []byte("roles")
)

// User is a durable user record (spec.md §3).
type User struct {
	ID    string
	Realm string
	Roles []string
	KV    map[string][]byte
}

// Role is a durable role record. Permissions are kept in their
// textual PermRule grammar (spec.md §3) and parsed on demand so that a
// malformed rule fails the Check that uses it rather than corrupting
// the whole role record.
type Role struct {
	Name        string
	Parents     []string
	Permissions []string
}

// Store is the User & Permission Store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the user database at path and
// ensures all three sub-buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, bffherr.Wrap(bffherr.KindStoreOpen, "userstore: open_env", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketUsers, bucketPasswords, bucketRoles} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, bffherr.Wrap(bffherr.KindStoreOpen, "userstore: create_db", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetUser returns the user record for id, or ok=false if unknown.
func (s *Store) GetUser(id string) (u User, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get([]byte(id))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &u)
	})
	if err != nil {
		return User{}, false, bffherr.Wrap(bffherr.KindStoreTxn, "userstore: get_user", err)
	}
	return u, ok, nil
}

// PutUser upserts a user record in a single write transaction.
func (s *Store) PutUser(u User) error {
	if u.ID == "" {
		return bffherr.New(bffherr.KindBadRequest, "userstore: put_user: empty id")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return bffherr.Wrap(bffherr.KindInternal, "userstore: put_user: marshal", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).Put([]byte(u.ID), data)
	})
	if err != nil {
		return bffherr.Wrap(bffherr.KindStoreTxn, "userstore: put_user", err)
	}
	return nil
}

// SetPassword hashes plaintext with argon2id using a fresh random salt
// and stores the PHC string. Preconditions (spec.md §4.3): id nonempty,
// 1 <= len(plaintext) <= 1024.
func (s *Store) SetPassword(id, plaintext string) error {
	if id == "" {
		return bffherr.New(bffherr.KindBadRequest, "userstore: set_password: empty id")
	}
	if len(plaintext) < 1 || len(plaintext) > 1024 {
		return bffherr.New(bffherr.KindBadRequest, "userstore: set_password: plaintext length out of bounds")
	}
	phc, err := hashPassword(plaintext)
	if err != nil {
		return bffherr.Wrap(bffherr.KindInternal, "userstore: set_password", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPasswords).Put([]byte(id), []byte(phc))
	})
	if err != nil {
		return bffherr.Wrap(bffherr.KindStoreTxn, "userstore: set_password", err)
	}
	return nil
}

// VerifyPassword reports whether candidate matches the stored hash for
// id. known is false if id has no stored password, matching the
// Option<bool> contract in spec.md §4.3 (None vs Some(true)/Some(false)).
func (s *Store) VerifyPassword(id, candidate string) (match bool, known bool, err error) {
	var phc []byte
	err = s.db.View(func(tx *bolt.Tx) error {
		phc = tx.Bucket(bucketPasswords).Get([]byte(id))
		return nil
	})
	if err != nil {
		return false, false, bffherr.Wrap(bffherr.KindStoreTxn, "userstore: verify_password", err)
	}
	if phc == nil {
		return false, false, nil
	}
	return verifyPassword(string(phc), candidate), true, nil
}

// DeletePassword removes id's stored password, returning whether an
// entry was actually removed. Idempotent.
func (s *Store) DeletePassword(id string) (removed bool, err error) {
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPasswords)
		if b.Get([]byte(id)) == nil {
			return nil
		}
		removed = true
		return b.Delete([]byte(id))
	})
	if err != nil {
		return false, bffherr.Wrap(bffherr.KindStoreTxn, "userstore: delete_password", err)
	}
	return removed, nil
}

// GetRole returns the role record for id, or ok=false if unknown.
func (s *Store) GetRole(id string) (r Role, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRoles).Get([]byte(id))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return Role{}, false, bffherr.Wrap(bffherr.KindStoreTxn, "userstore: get_role", err)
	}
	return r, ok, nil
}

// PutRole upserts a role record, rejecting any permission rule that
// fails to parse so a bad rule never reaches Check.
func (s *Store) PutRole(id string, r Role) error {
	if id == "" {
		return bffherr.New(bffherr.KindBadRequest, "userstore: put_role: empty id")
	}
	for _, raw := range r.Permissions {
		if _, err := permparse.Parse(raw); err != nil {
			return bffherr.Wrap(bffherr.KindParse, fmt.Sprintf("userstore: put_role: %s", id), err)
		}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return bffherr.Wrap(bffherr.KindInternal, "userstore: put_role: marshal", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoles).Put([]byte(id), data)
	})
	if err != nil {
		return bffherr.Wrap(bffherr.KindStoreTxn, "userstore: put_role", err)
	}
	return nil
}

// Check aggregates all roles transitively reachable from user's own
// roles via Parents, walking the DAG depth-first with a visited set so
// a role is never revisited (spec.md §4.3) — this also makes Check
// terminate on cyclic role graphs. It returns true iff any rule of any
// reached role matches perm.
func (s *Store) Check(userID string, perm permparse.Permission) (bool, error) {
	u, ok, err := s.GetUser(userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	visited := make(map[string]bool)
	var walk func(roleID string) (bool, error)
	walk = func(roleID string) (bool, error) {
		if visited[roleID] {
			return false, nil
		}
		visited[roleID] = true

		role, ok, err := s.GetRole(roleID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		for _, raw := range role.Permissions {
			rule, err := permparse.Parse(raw)
			if err != nil {
				return false, bffherr.Wrap(bffherr.KindInternal, fmt.Sprintf("userstore: check: corrupt rule in role %s", roleID), err)
			}
			if rule.Matches(perm) {
				return true, nil
			}
		}
		for _, parent := range role.Parents {
			matched, err := walk(parent)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil
	}

	for _, roleID := range u.Roles {
		matched, err := walk(roleID)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// ResolveRules flattens every permission rule reachable from userID's
// roles (spec.md §4.10 "cached role-resolved permission rule set"),
// walking the same cycle-safe role DAG as Check but collecting every
// rule instead of stopping at the first match. Callers (pkg/session)
// are expected to call this once per connection and test further
// permissions against the returned slice locally, rather than hitting
// the store again for every capability check.
func (s *Store) ResolveRules(userID string) ([]permparse.Rule, error) {
	u, ok, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	visited := make(map[string]bool)
	var rules []permparse.Rule

	var walk func(roleID string) error
	walk = func(roleID string) error {
		if visited[roleID] {
			return nil
		}
		visited[roleID] = true

		role, ok, err := s.GetRole(roleID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		for _, raw := range role.Permissions {
			rule, err := permparse.Parse(raw)
			if err != nil {
				return bffherr.Wrap(bffherr.KindInternal, fmt.Sprintf("userstore: resolve_rules: corrupt rule in role %s", roleID), err)
			}
			rules = append(rules, rule)
		}
		for _, parent := range role.Parents {
			if err := walk(parent); err != nil {
				return err
			}
		}
		return nil
	}

	for _, roleID := range u.Roles {
		if err := walk(roleID); err != nil {
			return nil, err
		}
	}
	return rules, nil
}
