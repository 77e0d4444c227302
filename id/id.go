// Package id defines the identifier types used across loom: process-unique
// runtime identifiers derived from class metadata, and stable cross-process
// class UUIDs.
package id

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidID is returned when parsing a malformed identifier string.
var ErrInvalidID = errors.New("id: invalid identifier")

// ClassID is the process-unique runtime identifier of a job class:
// the class name plus the class creation time in milliseconds.
type ClassID struct {
	Name    string
	Created int64 // unix milliseconds
}

// NewClassID derives a class identifier from a name and creation time.
func NewClassID(name string, created time.Time) ClassID {
	return ClassID{Name: name, Created: created.UnixMilli()}
}

// String renders the identifier as "name-millis".
func (c ClassID) String() string {
	return c.Name + "-" + strconv.FormatInt(c.Created, 10)
}

// IsZero reports whether the identifier is unset.
func (c ClassID) IsZero() bool { return c.Name == "" && c.Created == 0 }

// ParseClassID parses an identifier previously produced by String.
func ParseClassID(s string) (ClassID, error) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return ClassID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	ms, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return ClassID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ClassID{Name: s[:i], Created: ms}, nil
}

// JobID is the process-unique runtime identifier of a job instance:
// its class identifier plus the instance creation time in nanoseconds.
// Nanosecond precision keeps instances of the same class created in quick
// succession distinct.
type JobID struct {
	Class   ClassID
	Created int64 // unix nanoseconds
	Seq     uint64
}

var seq atomicCounter

// NewJobID derives a job instance identifier. A process-wide sequence
// number breaks ties between instances created within the same nanosecond.
func NewJobID(class ClassID, created time.Time) JobID {
	return JobID{Class: class, Created: created.UnixNano(), Seq: seq.next()}
}

// String renders the identifier as "name-classMillis-instanceNanos-seq".
func (j JobID) String() string {
	return fmt.Sprintf("%s-%d-%d", j.Class.String(), j.Created, j.Seq)
}

// IsZero reports whether the identifier is unset.
func (j JobID) IsZero() bool { return j.Class.IsZero() && j.Created == 0 }

// ParseJobID parses an identifier previously produced by String.
func ParseJobID(s string) (JobID, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 4 {
		return JobID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	n := len(parts)
	sq, err1 := strconv.ParseUint(parts[n-1], 10, 64)
	ns, err2 := strconv.ParseInt(parts[n-2], 10, 64)
	ms, err3 := strconv.ParseInt(parts[n-3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return JobID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	name := strings.Join(parts[:n-3], "-")
	if name == "" {
		return JobID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return JobID{
		Class:   ClassID{Name: name, Created: ms},
		Created: ns,
		Seq:     sq,
	}, nil
}

// ClassUUID is the stable cross-process identifier a job class may carry,
// assigned once at class registration time.
type ClassUUID struct {
	u uuid.UUID
}

// NewClassUUID generates a fresh class UUID.
func NewClassUUID() ClassUUID {
	return ClassUUID{u: uuid.New()}
}

// ParseClassUUID parses the canonical UUID string form.
func ParseClassUUID(s string) (ClassUUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ClassUUID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ClassUUID{u: u}, nil
}

// String returns the canonical UUID string form.
func (c ClassUUID) String() string { return c.u.String() }

// IsZero reports whether the UUID is unset.
func (c ClassUUID) IsZero() bool { return c.u == uuid.UUID{} }
