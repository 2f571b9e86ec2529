package recurrence

import (
	"fmt"

	"github.com/google/uuid"
)

// IDScheme maps a (week offset, source slot id) pair to an occurrence id.
// Implementations must be pure: the same pair always yields the same id.
type IDScheme interface {
	OccurrenceID(week int, sourceID string) string
}

// PreviewID is the exclusion key of the occurrence of sourceID projected
// week weeks forward. Clients echo these keys back as excluded occurrence ids.
func PreviewID(week int, sourceID string) string {
	return fmt.Sprintf("preview-%d-%s", week, sourceID)
}

// PreviewIDs issues PreviewID values.
type PreviewIDs struct{}

// OccurrenceID implements IDScheme.
func (PreviewIDs) OccurrenceID(week int, sourceID string) string {
	return PreviewID(week, sourceID)
}

// commitNamespace scopes committed occurrence ids.
var commitNamespace = uuid.MustParse("6f1c2a4e-8d3b-5e7a-9c21-4b8f0d6e3a57")

// CommitIDs issues name-based UUIDs for occurrences written to a store.
// Committing the same source week twice yields the same ids, so the
// second commit collides instead of duplicating slots.
type CommitIDs struct{}

// OccurrenceID implements IDScheme.
func (CommitIDs) OccurrenceID(week int, sourceID string) string {
	return uuid.NewSHA1(commitNamespace, []byte(fmt.Sprintf("%d/%s", week, sourceID))).String()
}
