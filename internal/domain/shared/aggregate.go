package shared

// Versioned is implemented by every snapshot the entity store persists with
// an optimistic version.
type Versioned interface {
	GetVersion() int
	SetVersion(version int)
}

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Versioned
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides the version and pending events of an aggregate.
// The version lives next to the snapshot in the store, never inside it.
type BaseAggregateRoot struct {
	Version      int           `json:"-"`
	domainEvents []DomainEvent `json:"-"`
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// SetVersion is called by the store after a load or a successful write
func (a *BaseAggregateRoot) SetVersion(version int) {
	a.Version = version
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}
