package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/samber/lo"

	"github.com/ericfisherdev/antigravity/internal/domain/model"
	"github.com/ericfisherdev/antigravity/internal/domain/port/driven"
)

// StorageKey is the KV key the credential collection is persisted under.
const StorageKey = "antigravity_api_keys"

// ErrCredentialNotFound is returned when a lookup by ID finds no credential.
var ErrCredentialNotFound = errors.New("credential not found")

// KeyRegistry holds the ordered credential collection and mirrors it to a
// KVStore. Every mutation re-reads the stored collection and rewrites it in one
// atomic store update, so registries in other processes sharing the store do
// not overwrite each other. If the write fails the in-memory collection is left
// as it was. At most one credential is active.
type KeyRegistry struct {
	store  driven.KVStore
	policy model.ActivationPolicy
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu     sync.Mutex
	creds  []model.Credential
	loaded bool

	subsMu  sync.Mutex
	subs    map[int]func([]model.Credential)
	nextSub int
}

// NewKeyRegistry creates a KeyRegistry persisting through store. An unknown
// policy falls back to model.ActivationPolicyNone.
func NewKeyRegistry(store driven.KVStore, policy model.ActivationPolicy, logger *slog.Logger) *KeyRegistry {
	if !policy.Valid() {
		policy = model.ActivationPolicyNone
	}
	return &KeyRegistry{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return xid.New().String() },
		subs:   make(map[int]func([]model.Credential)),
	}
}

// Policy returns the activation policy applied when the active credential is removed.
func (r *KeyRegistry) Policy() model.ActivationPolicy {
	return r.policy
}

// Load reads the persisted collection, replacing the in-memory copy. A missing
// value yields an empty collection. A malformed value also yields an empty
// collection and is logged rather than returned.
func (r *KeyRegistry) Load(ctx context.Context) ([]model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(r.creds), nil
}

// List returns a copy of the collection in insertion order, loading it first
// if needed.
func (r *KeyRegistry) List(ctx context.Context) ([]model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(r.creds), nil
}

// Active returns the active credential, if any.
func (r *KeyRegistry) Active(ctx context.Context) (model.Credential, bool, error) {
	creds, err := r.List(ctx)
	if err != nil {
		return model.Credential{}, false, err
	}
	active, ok := lo.Find(creds, func(c model.Credential) bool { return c.IsActive })
	return active, ok, nil
}

// Get returns the credential with the given ID or ErrCredentialNotFound.
func (r *KeyRegistry) Get(ctx context.Context, id string) (model.Credential, error) {
	creds, err := r.List(ctx)
	if err != nil {
		return model.Credential{}, err
	}
	c, ok := lo.Find(creds, func(c model.Credential) bool { return c.ID == id })
	if !ok {
		return model.Credential{}, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}
	return c, nil
}

// Add appends a new credential built from in. It becomes active only when the
// collection was empty. Name and secret are required and must not be blank; a
// blank provider is replaced by model.DefaultProvider. Provider and name are
// trimmed, the secret is stored exactly as entered.
func (r *KeyRegistry) Add(ctx context.Context, in model.CredentialInput) ([]model.Credential, error) {
	secret := in.Secret
	in.Provider = strings.TrimSpace(in.Provider)
	in.Name = strings.TrimSpace(in.Name)
	in.Secret = strings.TrimSpace(in.Secret)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Provider == "" {
		in.Provider = model.DefaultProvider
	}

	return r.mutate(ctx, func(creds []model.Credential) ([]model.Credential, error) {
		return append(creds, model.Credential{
			ID:        r.newID(),
			Provider:  in.Provider,
			Name:      in.Name,
			Secret:    secret,
			IsActive:  len(creds) == 0,
			CreatedAt: model.NewUnixMillis(r.now()),
		}), nil
	})
}

// Remove deletes the credential with the given ID. Removing an unknown ID is a
// no-op that still persists the collection. When the removed credential was
// active, the registry's ActivationPolicy decides whether another is promoted.
func (r *KeyRegistry) Remove(ctx context.Context, id string) ([]model.Credential, error) {
	return r.mutate(ctx, func(creds []model.Credential) ([]model.Credential, error) {
		removedActive := lo.ContainsBy(creds, func(c model.Credential) bool { return c.ID == id && c.IsActive })
		remaining := lo.Reject(creds, func(c model.Credential, _ int) bool { return c.ID == id })

		if removedActive && r.policy == model.ActivationPolicyPromoteFirst && len(remaining) > 0 {
			remaining[0].IsActive = true
		}
		return remaining, nil
	})
}

// Activate makes the credential with the given ID the only active one. If no
// credential matches, every credential ends up inactive.
func (r *KeyRegistry) Activate(ctx context.Context, id string) ([]model.Credential, error) {
	return r.mutate(ctx, func(creds []model.Credential) ([]model.Credential, error) {
		return activateOnly(creds, id), nil
	})
}

// ActivateExisting is Activate restricted to a known ID. The existence check
// and the activation see the same stored collection; an unknown ID returns
// ErrCredentialNotFound and changes nothing.
func (r *KeyRegistry) ActivateExisting(ctx context.Context, id string) ([]model.Credential, error) {
	return r.mutate(ctx, func(creds []model.Credential) ([]model.Credential, error) {
		if !lo.ContainsBy(creds, func(c model.Credential) bool { return c.ID == id }) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
		}
		return activateOnly(creds, id), nil
	})
}

func activateOnly(creds []model.Credential, id string) []model.Credential {
	return lo.Map(creds, func(c model.Credential, _ int) model.Credential {
		c.IsActive = c.ID == id
		return c
	})
}

// Subscribe registers fn to receive a copy of the collection after every
// successful mutation. The returned function removes the subscription.
func (r *KeyRegistry) Subscribe(fn func([]model.Credential)) (unsubscribe func()) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		delete(r.subs, id)
	}
}

// mutate applies fn to the collection as currently stored and writes the result
// in the same store update. Only after the write succeeds does the result
// replace the in-memory copy. An error from fn aborts the update unchanged.
// Subscribers are notified outside the registry lock.
func (r *KeyRegistry) mutate(
	ctx context.Context,
	fn func([]model.Credential) ([]model.Credential, error),
) ([]model.Credential, error) {
	r.mu.Lock()

	var next []model.Credential
	var applyErr error
	err := r.store.Update(ctx, StorageKey, func(raw string, ok bool) (string, error) {
		next, applyErr = fn(r.decode(raw, ok))
		if applyErr != nil {
			return "", applyErr
		}
		if next == nil {
			next = []model.Credential{}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return "", fmt.Errorf("marshal credentials: %w", err)
		}
		return string(data), nil
	})
	if applyErr != nil {
		r.mu.Unlock()
		return nil, applyErr
	}
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("save credentials: %w", err)
	}
	r.creds = next
	r.loaded = true
	r.mu.Unlock()

	r.notify(next)
	return slices.Clone(next), nil
}

func (r *KeyRegistry) ensureLoaded(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	return r.loadLocked(ctx)
}

func (r *KeyRegistry) loadLocked(ctx context.Context) error {
	raw, ok, err := r.store.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	r.creds = r.decode(raw, ok)
	r.loaded = true
	return nil
}

// decode parses a stored collection. Missing, null and malformed values all
// decode to an empty collection; malformed ones are logged.
func (r *KeyRegistry) decode(raw string, ok bool) []model.Credential {
	creds := []model.Credential{}
	if !ok {
		return creds
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		r.logger.Warn("stored credentials are malformed, starting empty", "key", StorageKey, "error", err)
		return []model.Credential{}
	}
	if creds == nil {
		return []model.Credential{}
	}
	return creds
}

func (r *KeyRegistry) notify(creds []model.Credential) {
	r.subsMu.Lock()
	fns := make([]func([]model.Credential), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subsMu.Unlock()

	for _, fn := range fns {
		fn(slices.Clone(creds))
	}
}
