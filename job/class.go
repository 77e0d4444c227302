package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/event"
	"github.com/loomworks/loom/id"
)

// FieldSpec declares a named output field or output queue on a job class.
// Disabled entries behave exactly like undeclared names.
type FieldSpec struct {
	Name     string
	Disabled bool
}

// MethodSpec declares a named public method other jobs may invoke on
// instances of the class. With WaitForResult set, callers block on the
// method's return value; otherwise invocation is fire-and-forget.
type MethodSpec struct {
	Name          string
	Disabled      bool
	WaitForResult bool
}

// Class describes a job type: its identity, capability metadata and the
// constructor for its runner. A Class must be registered with a Registry
// before instances can be created from it.
type Class struct {
	Name      string
	Singleton bool

	OutputFields  []FieldSpec
	OutputQueues  []FieldSpec
	PublicMethods []MethodSpec
	Mixins        []*Mixin
	EventKinds    []event.Kind

	// New constructs a fresh runner for each instance. The runner must
	// embed Base.
	New func() Runner

	runtimeID id.ClassID
	uuid      id.ClassUUID
}

// RuntimeID returns the process-unique identifier assigned at registration.
func (c *Class) RuntimeID() id.ClassID { return c.runtimeID }

// UUID returns the stable cross-process identifier assigned at registration.
func (c *Class) UUID() id.ClassUUID { return c.uuid }

// Registered reports whether the class has been added to a registry.
func (c *Class) Registered() bool { return !c.runtimeID.IsZero() }

func (c *Class) outputFieldSpec(name string) (FieldSpec, bool) {
	for _, f := range c.OutputFields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func (c *Class) outputQueueSpec(name string) (FieldSpec, bool) {
	for _, f := range c.OutputQueues {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func (c *Class) publicMethodSpec(name string) (MethodSpec, bool) {
	for _, m := range c.PublicMethods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodSpec{}, false
}

// SubscribesTo reports whether the class statically subscribes to the
// given event kind.
func (c *Class) SubscribesTo(kind event.Kind) bool {
	for _, k := range c.EventKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Registry keeps every job class defined for a process, indexed by name,
// runtime identifier and UUID. Entries are only ever added; construct one
// registry at program start and inject it where classes are looked up.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*Class
	byID   map[id.ClassID]*Class
	byUUID map[id.ClassUUID]*Class
	now    func() time.Time
}

// NewRegistry returns an empty class registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: map[string]*Class{},
		byID:   map[id.ClassID]*Class{},
		byUUID: map[id.ClassUUID]*Class{},
		now:    time.Now,
	}
}

// Register validates the class definition, assigns its runtime identifier
// and UUID, and indexes it. Class names are unique per registry; mixin
// compositions in which two mixins share a common ancestor are rejected.
func (r *Registry) Register(c *Class) error {
	if c.Name == "" {
		return fmt.Errorf("loom: job class has no name")
	}
	if c.New == nil {
		return fmt.Errorf("loom: job class %q has no constructor", c.Name)
	}
	if c.Registered() {
		return fmt.Errorf("%w: %q", loom.ErrDuplicateClass, c.Name)
	}
	if err := validateMixins(c.Mixins); err != nil {
		return fmt.Errorf("job class %q: %w", c.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[c.Name]; ok {
		return fmt.Errorf("%w: %q", loom.ErrDuplicateClass, c.Name)
	}
	c.runtimeID = id.NewClassID(c.Name, r.now())
	c.uuid = id.NewClassUUID()
	r.byName[c.Name] = c
	r.byID[c.runtimeID] = c
	r.byUUID[c.uuid] = c
	return nil
}

// Lookup finds a class by name.
func (r *Registry) Lookup(name string) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", loom.ErrUnknownClass, name)
	}
	return c, nil
}

// LookupID finds a class by its runtime identifier.
func (r *Registry) LookupID(cid id.ClassID) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[cid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", loom.ErrUnknownClass, cid)
	}
	return c, nil
}

// LookupUUID finds a class by its stable UUID.
func (r *Registry) LookupUUID(u id.ClassUUID) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byUUID[u]
	if !ok {
		return nil, fmt.Errorf("%w: %s", loom.ErrUnknownClass, u)
	}
	return c, nil
}

// Classes returns every registered class.
func (r *Registry) Classes() []*Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Class, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	return out
}
