package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bazarioapp/bazario/internal/crypto"
)

const (
	cookieName = "bazario_checkout"
	ttl        = 6 * time.Hour
)

// Manager owns the draft lifecycle: cookie binding, serialization and
// encryption at rest. All read/write sites go through it so the key set
// cannot drift.
type Manager struct {
	store     Store
	encryptor crypto.Encryptor
	secure    bool
}

func NewManager(store Store, encryptor crypto.Encryptor, secure bool) *Manager {
	return &Manager{
		store:     store,
		encryptor: encryptor,
		secure:    secure,
	}
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// SessionID returns the draft session id from the request cookie, creating
// a new one (and setting the cookie) when absent.
func (m *Manager) SessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, m.cookie(sessionID))
	return sessionID
}

// cookie builds the session cookie. The gateway returns the browser with a
// cross-site POST, and browsers withhold Lax cookies on those; SameSite=None
// keeps the session attached. None requires Secure, so plain-HTTP local
// development falls back to Lax and relies on the gateway session reference.
func (m *Manager) cookie(sessionID string) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if m.secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     cookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: sameSite,
	}
}

// SessionIDFromRequest returns the draft session id without creating one.
// The callback leg must never mint a fresh session: when the cookie is
// absent the caller falls back to the session reference echoed through
// the gateway, and past that the draft context is gone.
func (m *Manager) SessionIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Get returns the current draft, or a fresh empty draft when none exists.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Draft, error) {
	if sessionID == "" {
		return New(), nil
	}

	payload, ok := m.store.Get(ctx, sessionID)
	if !ok {
		return New(), nil
	}

	plaintext, err := m.encryptor.Decrypt(payload)
	if err != nil {
		// Unreadable payloads are treated as absent; the checkout step
		// rebuilds the draft from scratch.
		m.store.Delete(ctx, sessionID)
		return New(), nil
	}

	var d Draft
	if err := json.Unmarshal([]byte(plaintext), &d); err != nil {
		m.store.Delete(ctx, sessionID)
		return New(), nil
	}
	return &d, nil
}

// Update applies a partial write under read-modify-write and persists the
// result.
func (m *Manager) Update(ctx context.Context, sessionID string, u Update) (*Draft, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("draft session id is required")
	}

	d, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	d.Apply(u)

	if err := m.put(ctx, sessionID, d); err != nil {
		return nil, err
	}
	return d.clone(), nil
}

// SetPendingOrder records the gateway resumption context.
func (m *Manager) SetPendingOrder(ctx context.Context, sessionID string, pending *PendingOrder) error {
	if sessionID == "" {
		return fmt.Errorf("draft session id is required")
	}
	if pending == nil {
		return fmt.Errorf("pending order is required")
	}

	d, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	p := *pending
	if p.InitiatedAt == 0 {
		p.InitiatedAt = time.Now().Unix()
	}
	d.PendingOrder = &p
	d.UpdatedAt = time.Now().Unix()
	return m.put(ctx, sessionID, d)
}

// ClearPendingOrder removes only the pending-order portion, preserving the
// rest of the draft so the customer can retry from the payment step.
func (m *Manager) ClearPendingOrder(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	d, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if d.PendingOrder == nil {
		return nil
	}
	d.PendingOrder = nil
	d.UpdatedAt = time.Now().Unix()
	return m.put(ctx, sessionID, d)
}

// Clear removes the whole draft. Idempotent: clearing an absent draft is a
// no-op.
func (m *Manager) Clear(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	m.store.Delete(ctx, sessionID)
}

func (m *Manager) put(ctx context.Context, sessionID string, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	payload, err := m.encryptor.Encrypt(string(raw))
	if err != nil {
		return fmt.Errorf("failed to encrypt draft: %w", err)
	}

	m.store.Set(ctx, sessionID, payload, ttl)
	return nil
}
