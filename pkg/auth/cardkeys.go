package auth

import (
	"github.com/cuemby/bffhd/pkg/userstore"
	"github.com/cuemby/bffhd/pkg/value"
)

const fabfireKeyField = "fabfire_key"

// userStoreCardKeys adapts *userstore.Store to CardKeyStore: a card's
// AES authentication key is stored in its user record's KV field under
// fabfireKeyField, keyed by the same id as the card's token.
type userStoreCardKeys struct {
	store *userstore.Store
}

// NewUserStoreCardKeys returns a CardKeyStore backed by store.
func NewUserStoreCardKeys(store *userstore.Store) CardKeyStore {
	return userStoreCardKeys{store: store}
}

func (u userStoreCardKeys) CardKey(authID string) ([]byte, value.UserID, bool, error) {
	user, ok, err := u.store.GetUser(authID)
	if err != nil {
		return nil, "", false, err
	}
	if !ok {
		return nil, "", false, nil
	}
	key, ok := user.KV[fabfireKeyField]
	if !ok {
		return nil, "", false, nil
	}
	return key, value.UserID(user.ID), true, nil
}
