// Package registry maintains the persisted set of resto server definitions:
// the predefined entries shipped with the software, the operator's own
// entries, and the retired predefined names whose reuse is blocked.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"restoctl/internal/domain"
)

// SchemaVersion marks the persisted registry document layout.
const SchemaVersion = 1

// Snapshot is the persisted form of a registry: every server definition in
// insertion order plus the retired predefined names.
type Snapshot struct {
	Version int                       `json:"version"`
	Servers []domain.ServerDefinition `json:"servers"`
	Retired []string                  `json:"retired,omitempty"`
}

// Backup holds entries set aside during migration instead of being dropped.
type Backup struct {
	SavedAt time.Time                 `json:"savedAt"`
	Servers []domain.ServerDefinition `json:"servers"`
}

// Persister is the storage boundary. Saves must be atomic: a reader never
// observes a partially written document.
type Persister interface {
	SaveRegistry(snapshot Snapshot) error
	SaveBackup(backup Backup) error
}

// Registry is the in-memory server collection. It is not safe for concurrent
// use; one command invocation owns it for its whole lifetime. Every mutating
// operation is written through to the persister before returning.
type Registry struct {
	persist Persister
	logger  *zap.Logger

	order   []string
	servers map[string]*domain.ServerDefinition
	retired map[string]struct{}
}

// New returns an empty registry backed by persist.
func New(persist Persister, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		persist: persist,
		logger:  logger.Named("registry"),
		servers: make(map[string]*domain.ServerDefinition),
		retired: make(map[string]struct{}),
	}
}

// Lookup returns the definition registered under name, case-insensitively.
func (r *Registry) Lookup(name string) (domain.ServerDefinition, error) {
	canonical := domain.CanonicalName(name)
	srv, ok := r.servers[canonical]
	if !ok {
		msg := fmt.Sprintf("server %q does not exist in the registry", canonical)
		return domain.ServerDefinition{}, domain.E(domain.CodeNotFound, "lookup server", msg, nil)
	}
	return srv.Clone(), nil
}

// List returns all definitions in insertion order.
func (r *Registry) List() []domain.ServerDefinition {
	out := make([]domain.ServerDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.servers[name].Clone())
	}
	return out
}

// Len returns the number of registered servers.
func (r *Registry) Len() int {
	return len(r.order)
}

// CreateUserDefined registers a new operator-created server. The name must
// not collide, case-insensitively, with any current entry or with a retired
// predefined name.
func (r *Registry) CreateUserDefined(name string, application domain.ServiceAccess, authentication *domain.ServiceAccess) (domain.ServerDefinition, error) {
	const op = "create server"

	canonical := domain.CanonicalName(name)
	if canonical == "" {
		return domain.ServerDefinition{}, domain.E(domain.CodeInvalidDefinition, op, "server name is required", nil)
	}
	if err := r.checkNameFree(op, canonical); err != nil {
		return domain.ServerDefinition{}, err
	}

	def := domain.ServerDefinition{
		Name:           canonical,
		Origin:         domain.OriginUserDefined,
		Application:    application,
		Authentication: authentication,
		Status:         domain.StatusNeverReached,
	}
	normalized, err := def.Normalize()
	if err != nil {
		return domain.ServerDefinition{}, err
	}

	r.insert(normalized)
	if err := r.save(op); err != nil {
		return domain.ServerDefinition{}, err
	}
	r.logger.Info("server created", zap.String("server", normalized.Name))
	return normalized.Clone(), nil
}

// Delete removes a user-defined server. Predefined entries are protected.
func (r *Registry) Delete(name string) error {
	const op = "delete server"

	canonical := domain.CanonicalName(name)
	srv, ok := r.servers[canonical]
	if !ok {
		msg := fmt.Sprintf("server %q does not exist in the registry", canonical)
		return domain.E(domain.CodeNotFound, op, msg, nil)
	}
	if srv.Origin == domain.OriginPredefined {
		msg := fmt.Sprintf("server %q is predefined and cannot be deleted", canonical)
		return domain.E(domain.CodeProtectedEntry, op, msg, nil)
	}

	r.remove(canonical)
	if err := r.save(op); err != nil {
		return err
	}
	r.logger.Info("server deleted", zap.String("server", canonical))
	return nil
}

// Rename gives a user-defined server a new name, keeping its position,
// status and cache. The same conflict rules as CreateUserDefined apply.
func (r *Registry) Rename(oldName, newName string) error {
	const op = "rename server"

	oldCanonical := domain.CanonicalName(oldName)
	srv, ok := r.servers[oldCanonical]
	if !ok {
		msg := fmt.Sprintf("server %q does not exist in the registry", oldCanonical)
		return domain.E(domain.CodeNotFound, op, msg, nil)
	}
	if srv.Origin == domain.OriginPredefined {
		msg := fmt.Sprintf("server %q is predefined and cannot be renamed", oldCanonical)
		return domain.E(domain.CodeProtectedEntry, op, msg, nil)
	}

	newCanonical := domain.CanonicalName(newName)
	if newCanonical == "" {
		return domain.E(domain.CodeInvalidDefinition, op, "new server name is required", nil)
	}
	if newCanonical == oldCanonical {
		return nil
	}
	if err := r.checkNameFree(op, newCanonical); err != nil {
		return err
	}

	srv.Name = newCanonical
	delete(r.servers, oldCanonical)
	r.servers[newCanonical] = srv
	for i, name := range r.order {
		if name == oldCanonical {
			r.order[i] = newCanonical
			break
		}
	}
	if err := r.save(op); err != nil {
		return err
	}
	r.logger.Info("server renamed", zap.String("from", oldCanonical), zap.String("to", newCanonical))
	return nil
}

// ReportOutcome records the outcome of one completed request against the
// named server and returns the resulting status. The transition is persisted
// when the status actually changes.
func (r *Registry) ReportOutcome(name string, outcome domain.Outcome) (domain.Status, error) {
	const op = "report outcome"

	canonical := domain.CanonicalName(name)
	srv, ok := r.servers[canonical]
	if !ok {
		msg := fmt.Sprintf("server %q does not exist in the registry", canonical)
		return "", domain.E(domain.CodeNotFound, op, msg, nil)
	}

	next := srv.Status.Apply(outcome)
	if next == srv.Status {
		return next, nil
	}
	r.logger.Debug("server status changed",
		zap.String("server", canonical),
		zap.String("from", string(srv.Status)),
		zap.String("to", string(next)),
	)
	srv.Status = next
	if err := r.save(op); err != nil {
		return next, err
	}
	return next, nil
}

// GetOrRefresh serves the named server's cached metadata document for key,
// refreshing it through fetch when missing or older than ttl (zero means the
// default TTL). A refresh failure falls back to the stale value when one
// exists. A refreshed cache is persisted before returning.
func (r *Registry) GetOrRefresh(ctx context.Context, name, key string, ttl time.Duration, fetch domain.FetchFunc) (json.RawMessage, error) {
	const op = "refresh cache"

	canonical := domain.CanonicalName(name)
	srv, ok := r.servers[canonical]
	if !ok {
		msg := fmt.Sprintf("server %q does not exist in the registry", canonical)
		return nil, domain.E(domain.CodeNotFound, op, msg, nil)
	}

	value, changed, err := srv.Cache.GetOrRefresh(ctx, key, ttl, fetch)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := r.save(op); err != nil {
			return nil, err
		}
	}
	return value, nil
}

// RetiredNames returns the retired predefined names, sorted.
func (r *Registry) RetiredNames() []string {
	names := make([]string, 0, len(r.retired))
	for name := range r.retired {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot captures the registry in its persisted form.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		Version: SchemaVersion,
		Servers: r.List(),
		Retired: r.RetiredNames(),
	}
}

func (r *Registry) checkNameFree(op, canonical string) error {
	if _, exists := r.servers[canonical]; exists {
		msg := fmt.Sprintf("server %q already exists in the registry", canonical)
		return domain.E(domain.CodeNameConflict, op, msg, nil)
	}
	if _, wasRetired := r.retired[canonical]; wasRetired {
		msg := fmt.Sprintf("name %q belonged to a retired predefined server and cannot be reused", canonical)
		return domain.E(domain.CodeNameConflict, op, msg, nil)
	}
	return nil
}

func (r *Registry) insert(def domain.ServerDefinition) {
	srv := def.Clone()
	r.servers[srv.Name] = &srv
	r.order = append(r.order, srv.Name)
}

func (r *Registry) remove(canonical string) {
	delete(r.servers, canonical)
	for i, name := range r.order {
		if name == canonical {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) save(op string) error {
	if r.persist == nil {
		return nil
	}
	if err := r.persist.SaveRegistry(r.Snapshot()); err != nil {
		return domain.Wrap(domain.CodePersistence, op, err)
	}
	return nil
}
