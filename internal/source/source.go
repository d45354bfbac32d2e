// Package source supplies records and the registries that describe them:
// which columns exist and how priorities rank.
//
// Records come from a JSONC fixture file. [Route] narrows the full record set
// to one partition for one subject, which is what a dashboard fetch returns;
// the query engine applies the view's own filters afterwards.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/taskboard/internal/fs"
	"github.com/calvinalkan/taskboard/internal/query"
	"github.com/calvinalkan/taskboard/internal/record"
)

// ErrFetch wraps every failure to produce a partition's records.
var ErrFetch = errors.New("fetch failed")

// ErrUnknownPartition is returned for a partition name outside
// [query.Partitions].
var ErrUnknownPartition = errors.New("unknown partition")

// Fixture serves records from a JSONC file holding either an array of
// objects or {"records": [...]}. The file is re-read on every fetch.
type Fixture struct {
	fs        fs.FS
	path      string
	refFields []string
}

// NewFixture returns a Fixture reading path. Fields in refFields are
// normalized to [record.Ref].
func NewFixture(fsys fs.FS, path string, refFields []string) *Fixture {
	return &Fixture{fs: fsys, path: path, refFields: refFields}
}

// All returns every record in the fixture.
func (f *Fixture) All(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	data, err := f.fs.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrFetch, f.path, err)
	}

	raws, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, f.path, err)
	}

	out := make([]record.Record, 0, len(raws))
	for _, raw := range raws {
		out = append(out, record.Normalize(raw, f.refFields))
	}

	return out, nil
}

// Fetch returns the records of partition visible to subject.
func (f *Fixture) Fetch(ctx context.Context, partition, subject string) ([]record.Record, error) {
	if !query.IsPartition(partition) {
		return nil, fmt.Errorf("%w: %w: %q", ErrFetch, ErrUnknownPartition, partition)
	}

	all, err := f.All(ctx)
	if err != nil {
		return nil, err
	}

	return Route(all, partition, subject), nil
}

func decodeRecords(data []byte) ([]map[string]any, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	var list []map[string]any

	err = json.Unmarshal(std, &list)
	if err == nil {
		return list, nil
	}

	var wrapped struct {
		Records []map[string]any `json:"records"`
	}

	if wrapErr := json.Unmarshal(std, &wrapped); wrapErr != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return wrapped.Records, nil
}

// Route narrows records to what a fetch of partition for subject returns:
//
//   - assigned: assignee is subject, not done
//   - created: creator is subject
//   - review: subject holds a verifier role, not done
//   - completed, receivedVerification: done
//
// An empty subject matches any person.
func Route(records []record.Record, partition, subject string) []record.Record {
	out := make([]record.Record, 0, len(records))

	for _, rec := range records {
		if routes(rec, partition, subject) {
			out = append(out, rec)
		}
	}

	return out
}

func routes(rec record.Record, partition, subject string) bool {
	done := record.String(rec[query.FieldStatus]) == query.StatusDone

	switch partition {
	case query.PartitionAssigned:
		return !done && holds(rec, query.FieldAssignedTo, subject)
	case query.PartitionCreated:
		return holds(rec, query.FieldCreatedBy, subject)
	case query.PartitionReview:
		if done {
			return false
		}

		for _, role := range query.VerifierRoles {
			if holds(rec, role, subject) {
				return true
			}
		}

		return false
	case query.PartitionCompleted, query.PartitionReceivedVerification:
		return done
	default:
		return false
	}
}

func holds(rec record.Record, field, subject string) bool {
	v, ok := rec.Lookup(field + "." + record.FieldID)
	if !ok {
		return false
	}

	return subject == "" || record.String(v) == subject
}
