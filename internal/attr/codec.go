package attr

import (
	"encoding/json"
	"fmt"
	"time"

	aberr "aiblame/internal/errors"
)

// RecordVersion is the current note blob schema version. Decoding rejects
// records from a newer schema rather than misreading them.
const RecordVersion = 1

// NewRecord builds a canonical record for a commit from resolved entries.
// Entries are sorted by path and start line.
func NewRecord(commit string, createdAt time.Time, entries []LineAttribution) *AttributionRecord {
	sorted := make([]LineAttribution, len(entries))
	copy(sorted, entries)
	sortEntries(sorted)
	return &AttributionRecord{
		Version:   RecordVersion,
		Commit:    commit,
		CreatedAt: createdAt.UTC(),
		Entries:   sorted,
	}
}

// EncodeRecord serializes a record to the note blob format: indented JSON
// with a trailing newline, so the raw note stays readable under
// `git notes show`.
func EncodeRecord(rec *AttributionRecord) ([]byte, error) {
	if rec.Version == 0 {
		rec.Version = RecordVersion
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, aberr.New(aberr.InternalError, "failed to encode attribution record", err)
	}
	return append(data, '\n'), nil
}

// DecodeRecord parses a note blob back into a record, validating the schema
// version and range sanity.
func DecodeRecord(data []byte) (*AttributionRecord, error) {
	var rec AttributionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, aberr.New(aberr.InternalError, "malformed attribution record", err)
	}
	if rec.Version > RecordVersion {
		return nil, aberr.Newf(aberr.InternalError, nil,
			"attribution record version %d is newer than supported version %d", rec.Version, RecordVersion)
	}
	for i, e := range rec.Entries {
		if err := validateEntry(e); err != nil {
			return nil, aberr.Newf(aberr.InternalError, err, "invalid attribution entry %d", i)
		}
	}
	return &rec, nil
}

func validateEntry(e LineAttribution) error {
	if e.Path == "" {
		return fmt.Errorf("empty path")
	}
	if e.StartLine < 1 {
		return fmt.Errorf("start line %d out of range", e.StartLine)
	}
	if e.EndLine <= e.StartLine {
		return fmt.Errorf("empty range [%d,%d)", e.StartLine, e.EndLine)
	}
	switch e.Kind {
	case KindAI, KindHuman:
	default:
		return fmt.Errorf("unknown contributor kind %q", e.Kind)
	}
	return nil
}
