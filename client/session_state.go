package client

import (
	"encoding/json"
	"sort"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Role string

const (
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Identity shown while the client runs in test mode.
const (
	DemoVendorID = "ACME Industrial Services"
	DemoPlantID  = "Plant-01"
)

// State is the coarse lifecycle position of the client session.
type State int

const (
	StateLoggedOut State = iota
	StateAuthenticated
	StateInvalidated // terminal until a fresh SetSession
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateInvalidated:
		return "invalidated"
	default:
		return "logged_out"
	}
}

const topicChanged = "session:changed"

// Snapshot is an immutable copy of the session state. It is also the persisted form.
type Snapshot struct {
	AccessToken     string `json:"accessToken,omitempty"`
	VendorID        string `json:"vendorId,omitempty"`
	PlantID         string `json:"plantId,omitempty"`
	UserRole        Role   `json:"userRole"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsInvalidated   bool   `json:"isInvalidated"`
	IsTestMode      bool   `json:"isTestMode"`
}

func (s Snapshot) State() State {
	switch {
	case s.IsInvalidated:
		return StateInvalidated
	case s.IsAuthenticated:
		return StateAuthenticated
	default:
		return StateLoggedOut
	}
}

// CanViewProtected gates protected content: authenticated and not invalidated.
func (s Snapshot) CanViewProtected() bool {
	return s.IsAuthenticated && !s.IsInvalidated
}

// SessionData is what a successful login hands to SetSession.
type SessionData struct {
	AccessToken string
	VendorID    string
	PlantID     string
	UserRole    Role // defaults to RoleTechnician
}

// SessionState holds the client's session and persists every change to a Storage.
// It is passed explicitly to the API client and the poller.
type SessionState struct {
	mu      sync.Mutex
	pubMu   sync.Mutex // orders notifications with mutations
	current Snapshot
	storage Storage
	logger  zerolog.Logger

	bus         evbus.Bus
	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSub     int
}

type StateOption func(*SessionState)

func WithStateLogger(logger zerolog.Logger) StateOption {
	return func(s *SessionState) {
		s.logger = logger
	}
}

// NewSessionState restores the persisted snapshot from storage when there is one.
func NewSessionState(storage Storage, options ...StateOption) (*SessionState, error) {
	if storage == nil {
		return nil, errors.New("[NewSessionState] storage is required")
	}
	s := &SessionState{
		current: Snapshot{UserRole: RoleTechnician},
		storage: storage,
		logger:  zerolog.Nop(),
		bus:         evbus.New(),
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.bus.Subscribe(topicChanged, s.dispatch); err != nil {
		return nil, errors.Wrap(err, "[NewSessionState] subscribe")
	}

	data, err := storage.Load(StorageKey)
	switch {
	case errors.Is(err, ErrNotStored):
	case err != nil:
		return nil, errors.Wrap(err, "[NewSessionState] load")
	default:
		var restored Snapshot
		if err := json.Unmarshal(data, &restored); err != nil {
			s.logger.Warn().Err(err).Msg("discarding unreadable stored session")
			break
		}
		if restored.UserRole == "" {
			restored.UserRole = RoleTechnician
		}
		restored.IsAuthenticated = restored.AccessToken != "" || restored.IsTestMode
		s.current = restored
	}
	return s, nil
}

func (s *SessionState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *SessionState) State() State           { return s.Snapshot().State() }
func (s *SessionState) IsAuthenticated() bool  { return s.Snapshot().IsAuthenticated }
func (s *SessionState) IsInvalidated() bool    { return s.Snapshot().IsInvalidated }
func (s *SessionState) Role() Role             { return s.Snapshot().UserRole }
func (s *SessionState) CanViewProtected() bool { return s.Snapshot().CanViewProtected() }
func (s *SessionState) AccessToken() string    { return s.Snapshot().AccessToken }

// SetSession stores a fresh login and clears any earlier invalidation.
func (s *SessionState) SetSession(data SessionData) error {
	role := data.UserRole
	if role == "" {
		role = RoleTechnician
	}
	return s.mutate(func(c *Snapshot) {
		c.AccessToken = data.AccessToken
		c.VendorID = data.VendorID
		c.PlantID = data.PlantID
		c.UserRole = role
		c.IsAuthenticated = data.AccessToken != "" || c.IsTestMode
		c.IsInvalidated = false
	})
}

// ClearSession drops the credentials and leaves test mode. The invalidation latch
// is kept.
func (s *SessionState) ClearSession() error {
	return s.mutate(func(c *Snapshot) {
		c.AccessToken = ""
		c.VendorID = ""
		c.PlantID = ""
		c.UserRole = RoleTechnician
		c.IsTestMode = false
		c.IsAuthenticated = false
	})
}

func (s *SessionState) SetInvalidated(invalidated bool) error {
	return s.mutate(func(c *Snapshot) {
		c.IsInvalidated = invalidated
	})
}

// SetTestMode switches the demo identity on or off. An empty role means technician.
func (s *SessionState) SetTestMode(enabled bool, role Role) error {
	if role == "" {
		role = RoleTechnician
	}
	return s.mutate(func(c *Snapshot) {
		c.IsTestMode = enabled
		c.UserRole = role
		if enabled {
			c.VendorID = DemoVendorID
			c.PlantID = DemoPlantID
		} else {
			c.VendorID = ""
			c.PlantID = ""
		}
		c.IsAuthenticated = enabled || c.AccessToken != ""
	})
}

func (s *SessionState) SetUserRole(role Role) error {
	return s.mutate(func(c *Snapshot) {
		c.UserRole = role
	})
}

// mutate applies fn, persists the result and notifies subscribers. The in-memory
// change stands even when persisting fails.
func (s *SessionState) mutate(fn func(*Snapshot)) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	fn(&s.current)
	snap := s.current
	err := s.persist(snap)
	s.mu.Unlock()

	s.publish(snap)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to persist session state")
	}
	return err
}

func (s *SessionState) persist(snap Snapshot) error {
	if !snap.IsAuthenticated && !snap.IsInvalidated && snap.AccessToken == "" {
		return errors.Wrap(s.storage.Remove(StorageKey), "[persist] remove")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "[persist] encode")
	}
	return errors.Wrap(s.storage.Save(StorageKey, data), "[persist] save")
}

// Subscribe registers fn to receive the snapshot after every mutation and returns
// a function that cancels the subscription. fn runs on the mutating goroutine and
// must not mutate the state itself.
func (s *SessionState) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// SubscriberCount returns the number of live subscriptions.
func (s *SessionState) SubscriberCount() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subscribers)
}

func (s *SessionState) publish(snap Snapshot) {
	s.bus.Publish(topicChanged, snap)
}

// dispatch is the single bus handler. It fans a snapshot out to the subscribers
// registered when the event was published.
func (s *SessionState) dispatch(snap Snapshot) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subscribers[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
