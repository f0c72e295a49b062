package console

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"housingadmin/console/internal/client"
	"housingadmin/console/internal/models"
	"housingadmin/console/internal/resource"
)

// Workspace is one signed-in session's view of every collection.
type Workspace struct {
	Clients    *client.Set
	Users      *resource.Manager[models.User]
	Admins     *resource.Manager[models.Admin]
	Properties *resource.Manager[models.Property]
	Listings   *resource.Manager[models.Listing]
	Reports    *resource.Manager[models.Report]
}

func NewWorkspace(clients *client.Set, transitions resource.Transitions, logger *logrus.Logger) *Workspace {
	return &Workspace{
		Clients:    clients,
		Users:      resource.NewManager(UserKind, clients.Users, nil, logger),
		Admins:     resource.NewManager(AdminKind, clients.Admins, nil, logger),
		Properties: resource.NewManager(PropertyKind, clients.Properties, transitions, logger),
		Listings:   resource.NewManager(ListingKind, clients.Listings, nil, logger),
		Reports:    resource.NewManager(ReportKind, clients.Reports, nil, logger),
	}
}

// Dispose drops every collection; late responses are ignored.
func (w *Workspace) Dispose() {
	w.Users.Dispose()
	w.Admins.Dispose()
	w.Properties.Dispose()
	w.Listings.Dispose()
	w.Reports.Dispose()
}

// Counts is the dashboard summary.
type Counts struct {
	Users      int
	Properties int
	Listings   int
	Reports    int
	ByStatus   map[models.RegistrationStatus]int
}

// Counts loads what is missing and tallies each collection. A collection
// that fails to load counts as zero and its error stays on its manager.
func (w *Workspace) Counts(ctx context.Context) Counts {
	_ = w.Users.EnsureLoaded(ctx)
	_ = w.Properties.EnsureLoaded(ctx)
	_ = w.Listings.EnsureLoaded(ctx)
	_ = w.Reports.EnsureLoaded(ctx)

	c := Counts{
		Users:      len(w.Users.Rows()),
		Properties: len(w.Properties.Rows()),
		Listings:   len(w.Listings.Rows()),
		Reports:    len(w.Reports.Rows()),
		ByStatus:   make(map[models.RegistrationStatus]int, len(models.RegistrationStatuses)),
	}
	for _, s := range models.RegistrationStatuses {
		c.ByStatus[s] = 0
	}
	for _, row := range w.Properties.Rows() {
		c.ByStatus[row.Item.Status]++
	}
	return c
}

// Workspaces holds one workspace per browser session.
type Workspaces struct {
	mu      sync.Mutex
	byID    map[string]*Workspace
	factory func(sessionID string) *Workspace
}

func NewWorkspaces(factory func(sessionID string) *Workspace) *Workspaces {
	return &Workspaces{byID: make(map[string]*Workspace), factory: factory}
}

// Get returns the session's workspace, creating it on first use.
func (ws *Workspaces) Get(sessionID string) *Workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if w, ok := ws.byID[sessionID]; ok {
		return w
	}
	w := ws.factory(sessionID)
	ws.byID[sessionID] = w
	return w
}

// Drop disposes and forgets the session's workspace.
func (ws *Workspaces) Drop(sessionID string) {
	ws.mu.Lock()
	w, ok := ws.byID[sessionID]
	delete(ws.byID, sessionID)
	ws.mu.Unlock()
	if ok {
		w.Dispose()
	}
}

// Retain drops every workspace whose session keep rejects and returns how
// many were dropped. keep runs without the lock held.
func (ws *Workspaces) Retain(keep func(sessionID string) bool) int {
	ws.mu.Lock()
	ids := make([]string, 0, len(ws.byID))
	for id := range ws.byID {
		ids = append(ids, id)
	}
	ws.mu.Unlock()

	dropped := 0
	for _, id := range ids {
		if !keep(id) {
			ws.Drop(id)
			dropped++
		}
	}
	return dropped
}

func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.byID)
}
