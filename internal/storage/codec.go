package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"subtrack/internal/core"
)

// SnapshotVersion is written into every envelope. Older versions are read
// as-is, newer ones are rejected.
const SnapshotVersion = 1

//go:embed snapshot.schema.json
var snapshotSchemaJSON []byte

var (
	schemaOnce     sync.Once
	snapshotSchema *jsonschema.Schema
	schemaErr      error
)

type envelope struct {
	Version int           `json:"version"`
	State   snapshotState `json:"state"`
}

type snapshotState struct {
	Subscriptions  []core.Subscription `json:"subscriptions"`
	SearchTerm     string              `json:"searchTerm"`
	FilterCategory string              `json:"filterCategory"`
	SortBy         core.SortBy         `json:"sortBy"`
	SortOrder      core.SortOrder      `json:"sortOrder"`
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("snapshot.schema.json", bytes.NewReader(snapshotSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		snapshotSchema, schemaErr = compiler.Compile("snapshot.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return snapshotSchema, schemaErr
}

// Encode serialises snap into the versioned JSON envelope.
func Encode(snap Snapshot) ([]byte, error) {
	subs := snap.Subscriptions
	if subs == nil {
		subs = []core.Subscription{}
	}
	env := envelope{
		Version: SnapshotVersion,
		State: snapshotState{
			Subscriptions:  subs,
			SearchTerm:     snap.Filter.SearchTerm,
			FilterCategory: snap.Filter.FilterCategory,
			SortBy:         snap.Filter.SortBy,
			SortOrder:      snap.Filter.SortOrder,
		},
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return b, nil
}

// Decode parses and validates an envelope produced by Encode. Every failure
// wraps ErrCorruptSnapshot. Filter fields missing from the payload take
// their default value.
func Decode(data []byte) (Snapshot, error) {
	schema, err := compiledSchema()
	if err != nil {
		return Snapshot{}, err
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := schema.Validate(raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if env.Version > SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, env.Version)
	}

	filter := core.DefaultFilterState()
	filter.SearchTerm = env.State.SearchTerm
	filter.FilterCategory = env.State.FilterCategory
	if env.State.SortBy != "" {
		filter.SortBy = env.State.SortBy
	}
	if env.State.SortOrder != "" {
		filter.SortOrder = env.State.SortOrder
	}

	subs := env.State.Subscriptions
	if subs == nil {
		subs = []core.Subscription{}
	}
	return Snapshot{Subscriptions: subs, Filter: filter}, nil
}
