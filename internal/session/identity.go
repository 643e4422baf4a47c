package session

import (
	"errors"

	"github.com/docquery-ai/document-assistant/internal/storage"
)

// RestoreKey is the ephemeral one-shot key holding a conversation ID
// that the next page load should restore. It is consumed on read.
const RestoreKey = "restore:conversation"

// State is the binding state of the identity store.
type State int

const (
	// Unbound means no conversation is active.
	Unbound State = iota
	// Pending means an identifier was adopted from storage but the
	// remote store has not confirmed it yet.
	Pending
	// Bound means the identifier is set and believed valid.
	Bound
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Pending:
		return "pending"
	case Bound:
		return "bound"
	default:
		return "unknown"
	}
}

// ErrNotBound is returned by operations that require an active binding.
var ErrNotBound = errors.New("session: no bound conversation")

// Identity owns the single mutable "current conversation" field for one
// scope. All writes to the scoped storage binding go through it.
type Identity struct {
	scope     Scope
	durable   storage.Store
	ephemeral *storage.SessionStore

	state State
	id    string
}

// NewIdentity creates an unbound identity store for scope.
func NewIdentity(scope Scope, durable storage.Store, ephemeral *storage.SessionStore) *Identity {
	return &Identity{
		scope:     scope,
		durable:   durable,
		ephemeral: ephemeral,
		state:     Unbound,
	}
}

// Scope returns the scope this identity is bound under.
func (i *Identity) Scope() Scope {
	return i.scope
}

// State returns the current binding state.
func (i *Identity) State() State {
	return i.state
}

// Current returns the active conversation ID, or "" when Unbound.
func (i *Identity) Current() string {
	if i.state == Unbound {
		return ""
	}
	return i.id
}

// StoredID reads the persisted binding for this scope without changing
// state. Returns "" when no binding is stored.
func (i *Identity) StoredID() string {
	v, err := i.durable.Get(i.scope.Key())
	if err != nil {
		return ""
	}
	return v
}

// TakeRestoreID consumes the one-shot restore flag, if present. The
// flag takes precedence over the stored binding for a single load.
func (i *Identity) TakeRestoreID() (string, bool) {
	if i.ephemeral == nil {
		return "", false
	}
	return i.ephemeral.Take(RestoreKey)
}

// Adopt moves Unbound -> Pending with an identifier read from storage
// or a restore flag. The caller must then confirm or reject once the
// remote store has answered.
func (i *Identity) Adopt(id string) error {
	if i.state != Unbound {
		return errors.New("session: adopt requires unbound state")
	}
	if id == "" {
		return errors.New("session: adopt requires an identifier")
	}
	i.state = Pending
	i.id = id
	return nil
}

// Confirm moves Pending -> Bound after the remote store resolved the
// adopted identifier.
func (i *Identity) Confirm() error {
	if i.state != Pending {
		return errors.New("session: confirm requires pending state")
	}
	i.state = Bound
	return nil
}

// Reject handles a NotFound answer for the adopted identifier: the
// stored binding is removed and the store returns to Unbound. Only
// NotFound invalidates storage; transient failures leave the Pending
// identifier and the stored binding alone so the next load can retry.
func (i *Identity) Reject() error {
	if i.state != Pending {
		return errors.New("session: reject requires pending state")
	}
	i.state = Unbound
	i.id = ""
	return i.durable.Remove(i.scope.Key())
}

// ContinueWith binds id from any state and overwrites the stored
// binding. Last write wins; it always follows a successful query.
func (i *Identity) ContinueWith(id string) error {
	if id == "" {
		return errors.New("session: continue requires an identifier")
	}
	i.state = Bound
	i.id = id
	return i.durable.Set(i.scope.Key(), id)
}

// Clear unbinds from any state, removing the stored binding and any
// pending restore flag. The remote conversation is untouched.
func (i *Identity) Clear() error {
	i.state = Unbound
	i.id = ""
	if i.ephemeral != nil {
		i.ephemeral.Take(RestoreKey)
	}
	return i.durable.Remove(i.scope.Key())
}
