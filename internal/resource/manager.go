package resource

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotConfirmed         = errors.New("delete was not confirmed")
	ErrNotFound             = errors.New("item not found")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	ErrNoStatus             = errors.New("resource has no status")
	ErrDisposed             = errors.New("page was closed")
)

// Entity is anything with a backend id.
type Entity interface {
	Key() string
}

// Client is the part of a resource client the manager needs.
type Client[T Entity] interface {
	GetAll(ctx context.Context) ([]T, error)
	Create(ctx context.Context, payload any) (*T, error)
	Update(ctx context.Context, id string, patch any) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Kind describes how one entity type is searched, filtered and given a status.
type Kind[T Entity] struct {
	Name string
	// SearchFields are matched case-insensitively against the search term.
	SearchFields func(T) []string
	// Category is compared exactly with the active filter (status, type).
	Category func(T) string
	// Status and WithStatus are set for kinds with a status lifecycle.
	Status     func(T) string
	WithStatus func(T, string) T
}

// Row is one item plus whether a local change is still awaiting the backend.
type Row[T Entity] struct {
	Item    T
	Pending bool
}

// Confirmer asks the user before a destructive action.
type Confirmer[T Entity] func(item T) bool

// Manager owns one page's collection and its UI state. Results that come
// back after a newer Load or after Dispose are dropped.
type Manager[T Entity] struct {
	kind        Kind[T]
	client      Client[T]
	transitions Transitions
	logger      *logrus.Logger

	mu         sync.Mutex
	rows       []Row[T]
	loading    bool
	loaded     bool
	errMsg     string
	search     string
	filter     string
	generation uint64
	disposed   bool
}

func NewManager[T Entity](kind Kind[T], client Client[T], transitions Transitions, logger *logrus.Logger) *Manager[T] {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager[T]{
		kind:        kind,
		client:      client,
		transitions: transitions,
		logger:      logger,
	}
}

func (m *Manager[T]) Kind() Kind[T] { return m.kind }

// Load fetches the whole collection. It is also the manual retry action.
func (m *Manager[T]) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrDisposed
	}
	m.generation++
	gen := m.generation
	m.loading = true
	m.mu.Unlock()

	items, err := m.client.GetAll(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed || gen != m.generation {
		m.logger.WithField("resource", m.kind.Name).Debug("Dropping stale fetch result")
		return ErrDisposed
	}
	m.loading = false
	if err != nil {
		m.errMsg = err.Error()
		m.logger.WithError(err).WithField("resource", m.kind.Name).Error("Failed to load collection")
		return err
	}

	m.errMsg = ""
	m.loaded = true
	m.rows = make([]Row[T], len(items))
	for i, item := range items {
		m.rows[i] = Row[T]{Item: item}
	}
	return nil
}

// EnsureLoaded loads once; later calls reuse the collection.
func (m *Manager[T]) EnsureLoaded(ctx context.Context) error {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()
	if loaded {
		return nil
	}
	return m.Load(ctx)
}

// Dispose discards the state. In-flight calls are not aborted but their
// results are no longer applied.
func (m *Manager[T]) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
	m.generation++
	m.rows = nil
}

func (m *Manager[T]) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Err is the message of the last failed Load, or "". Errors of single
// operations are only returned to their caller.
func (m *Manager[T]) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

func (m *Manager[T]) SetSearch(term string) {
	m.mu.Lock()
	m.search = strings.TrimSpace(term)
	m.mu.Unlock()
}

func (m *Manager[T]) SetFilter(value string) {
	m.mu.Lock()
	m.filter = value
	m.mu.Unlock()
}

func (m *Manager[T]) Search() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.search
}

func (m *Manager[T]) Filter() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// Rows returns a copy of every row.
func (m *Manager[T]) Rows() []Row[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Row[T](nil), m.rows...)
}

// Filtered applies the search term and category filter to the collection.
func (m *Manager[T]) Filtered() []Row[T] {
	m.mu.Lock()
	search, filter := m.search, m.filter
	m.mu.Unlock()
	return m.FilteredBy(search, filter)
}

// FilteredBy is Filtered with explicit criteria; the page's own search and
// filter are left untouched.
func (m *Manager[T]) FilteredBy(search, filter string) []Row[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]Row[T], 0, len(m.rows))
	for _, row := range m.rows {
		if filter != "" && (m.kind.Category == nil || m.kind.Category(row.Item) != filter) {
			continue
		}
		if term != "" && !m.matches(row.Item, term) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (m *Manager[T]) matches(item T, term string) bool {
	if m.kind.SearchFields == nil {
		return false
	}
	for _, field := range m.kind.SearchFields(item) {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (m *Manager[T]) Get(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(id); i >= 0 {
		return m.rows[i].Item, true
	}
	var zero T
	return zero, false
}

func (m *Manager[T]) indexOf(id string) int {
	for i, row := range m.rows {
		if row.Item.Key() == id {
			return i
		}
	}
	return -1
}

// Put inserts or replaces an item confirmed by the backend.
func (m *Manager[T]) Put(item T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	if i := m.indexOf(item.Key()); i >= 0 {
		m.rows[i] = Row[T]{Item: item}
		return
	}
	m.rows = append(m.rows, Row[T]{Item: item})
}

// settle patches in an entity confirmed by the backend. A response without
// an id cannot be patched in, so a loaded collection is fetched again.
func (m *Manager[T]) settle(ctx context.Context, item *T) (T, bool) {
	if item != nil && (*item).Key() != "" {
		m.Put(*item)
		return *item, true
	}

	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()
	m.logger.WithField("resource", m.kind.Name).Warn("Backend response has no id, refetching collection")
	if loaded {
		_ = m.Load(ctx)
	}
	var zero T
	return zero, false
}

// Create sends payload and appends the stored entity. When the backend does
// not echo the entity, the zero value is returned with a nil error.
func (m *Manager[T]) Create(ctx context.Context, payload any) (T, error) {
	created, err := m.client.Create(ctx, payload)
	if err != nil {
		m.fail(err, "Failed to create item")
		var zero T
		return zero, err
	}
	item, _ := m.settle(ctx, created)
	return item, nil
}

// Update sends a partial payload and replaces the row with the result.
func (m *Manager[T]) Update(ctx context.Context, id string, patch any) (T, error) {
	updated, err := m.client.Update(ctx, id, patch)
	if err != nil {
		m.fail(err, "Failed to update item")
		var zero T
		return zero, err
	}
	item, ok := m.settle(ctx, updated)
	if !ok {
		item, _ = m.Get(id)
	}
	return item, nil
}

// Delete asks confirm first and never calls the backend without a yes. The
// row is removed right away and put back where it was if the backend fails.
func (m *Manager[T]) Delete(ctx context.Context, id string, confirm Confirmer[T]) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	removed := m.rows[i]
	m.mu.Unlock()

	if confirm == nil || !confirm(removed.Item) {
		return ErrNotConfirmed
	}

	m.mu.Lock()
	if i = m.indexOf(id); i < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	gen := m.generation
	m.mu.Unlock()

	if err := m.client.Delete(ctx, id); err != nil {
		m.mu.Lock()
		if !m.disposed && gen == m.generation {
			if i > len(m.rows) {
				i = len(m.rows)
			}
			m.rows = append(m.rows[:i], append([]Row[T]{removed}, m.rows[i:]...)...)
		}
		m.mu.Unlock()
		m.fail(err, "Failed to delete item")
		return err
	}
	return nil
}

// SetStatus applies status locally, marks the row pending, and sends exactly
// one update. The previous item is restored if the backend refuses.
func (m *Manager[T]) SetStatus(ctx context.Context, id, status string) (T, error) {
	var zero T
	if m.kind.Status == nil || m.kind.WithStatus == nil {
		return zero, ErrNoStatus
	}

	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return zero, ErrNotFound
	}
	previous := m.rows[i].Item
	from := m.kind.Status(previous)
	if !m.transitions.Allowed(from, status) {
		m.mu.Unlock()
		return zero, ErrTransitionNotAllowed
	}
	m.rows[i] = Row[T]{Item: m.kind.WithStatus(previous, status), Pending: true}
	gen := m.generation
	m.mu.Unlock()

	updated, err := m.client.Update(ctx, id, map[string]any{"status": status})

	m.mu.Lock()
	stale := m.disposed || gen != m.generation
	j := m.indexOf(id)
	switch {
	case stale || j < 0:
	case err != nil:
		m.rows[j] = Row[T]{Item: previous}
	case updated != nil && (*updated).Key() == id:
		m.rows[j] = Row[T]{Item: *updated}
	default:
		m.rows[j].Pending = false
	}
	m.mu.Unlock()

	if err != nil {
		m.fail(err, "Failed to change status")
		return zero, err
	}
	m.logger.WithFields(logrus.Fields{
		"resource": m.kind.Name,
		"id":       id,
		"from":     from,
		"to":       status,
	}).Info("Status changed")

	item, _ := m.Get(id)
	return item, nil
}

func (m *Manager[T]) fail(err error, msg string) {
	m.logger.WithError(err).WithField("resource", m.kind.Name).Error(msg)
}
