// Package metadata defines the file metadata model and its relational
// store. Records are owned by this package and mutated only by the
// reconciliation engine, the content accessor, and access tracking.
package metadata

import (
	"fmt"
	"strings"
	"time"
)

// ActorKind discriminates who performed a change.
type ActorKind string

const (
	// ActorKindExternal is the sentinel for changes detected purely
	// from a rescan: the filesystem carries no actor identity, so the
	// change is attributed to "the outside world" rather than left
	// null.
	ActorKindExternal ActorKind = "external"
	// ActorKindUser is an application-level actor.
	ActorKindUser ActorKind = "user"
)

// Actor is a tagged actor reference: either the external-edit sentinel
// or an application user.
type Actor struct {
	Kind ActorKind
	ID   string
}

// ExternalActor returns the external-edit sentinel.
func ExternalActor() Actor {
	return Actor{Kind: ActorKindExternal}
}

// UserActor returns an application actor with the given id.
func UserActor(id string) Actor {
	return Actor{Kind: ActorKindUser, ID: id}
}

// IsExternal reports whether this is the external-edit sentinel.
func (a Actor) IsExternal() bool {
	return a.Kind == ActorKindExternal
}

// IsZero reports whether the actor is unset.
func (a Actor) IsZero() bool {
	return a.Kind == ""
}

// String encodes the actor for storage and display: "external",
// "user:<id>", or "" when unset.
func (a Actor) String() string {
	switch a.Kind {
	case ActorKindExternal:
		return "external"
	case ActorKindUser:
		return "user:" + a.ID
	default:
		return ""
	}
}

// ParseActor decodes the storage form produced by String.
func ParseActor(s string) Actor {
	if s == "external" {
		return ExternalActor()
	}
	if id, ok := strings.CutPrefix(s, "user:"); ok {
		return UserActor(id)
	}
	return Actor{}
}

// FileRecord is the metadata record for one tracked file.
type FileRecord struct {
	ID           string
	RelativePath string
	FileType     string
	SizeBytes    int64
	ModifiedAt   time.Time
	UploadedBy   Actor
	ModifiedBy   Actor
	// AccessCount only ever grows; reconciliation never touches it.
	AccessCount int64
	// Team is the ownership partition, set by the upload path and
	// preserved verbatim across reconciliation.
	Team      string
	CreatedAt time.Time
}

// HumanSize returns the size in a human-readable unit.
func (r *FileRecord) HumanSize() string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case r.SizeBytes < kib:
		return fmt.Sprintf("%d B", r.SizeBytes)
	case r.SizeBytes < mib:
		return fmt.Sprintf("%.2f KB", float64(r.SizeBytes)/kib)
	case r.SizeBytes < gib:
		return fmt.Sprintf("%.2f MB", float64(r.SizeBytes)/mib)
	default:
		return fmt.Sprintf("%.2f GB", float64(r.SizeBytes)/gib)
	}
}

// FieldUpdate carries the fields refreshed on an existing record.
type FieldUpdate struct {
	FileType   string
	SizeBytes  int64
	ModifiedAt time.Time
	ModifiedBy Actor
}

// PathUpdate addresses a FieldUpdate to one record by path.
type PathUpdate struct {
	RelativePath string
	Fields       FieldUpdate
}

// Batch is one reconciliation's worth of mutations, applied atomically:
// either every change commits or none do.
type Batch struct {
	Creates []*FileRecord
	Updates []PathUpdate
	Deletes []string
}

// Empty reports whether the batch carries no mutations.
func (b *Batch) Empty() bool {
	return len(b.Creates) == 0 && len(b.Updates) == 0 && len(b.Deletes) == 0
}
