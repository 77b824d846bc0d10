/*
Package serde serializes Person snapshots.

PURPOSE:
  A Person aggregate is persisted between events and rebuilt for each
  inbound one. This package owns the wire format: a versioned JSON
  envelope around the aggregate's memento.

SCHEMA VERSIONING:
  Every snapshot records the schema version it was written with. A
  snapshot older than the current version is refused with a
  SchemaTooOldError; the engine never upgrades old snapshots silently.
  Reprocessing the original event stream is the only migration path.

DETERMINISM:
  The memento is slices in stable order, never maps, so encoding the
  snapshot of a replayed aggregate yields byte-identical output.
*/
package serde

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/warp/benefit-engine/claim"
)

// SchemaVersion is the current snapshot schema version. Bump it on any
// incompatible change to the memento layout.
const SchemaVersion = 3

type envelope struct {
	SchemaVersion int                 `json:"schema_version"`
	Person        claim.PersonMemento `json:"person"`
}

// Marshal encodes a Person snapshot in the current schema version.
func Marshal(p *claim.Person) ([]byte, error) {
	data, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Person: p.Memento()})
	if err != nil {
		return nil, fmt.Errorf("encode person snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a snapshot and rebuilds the aggregate. Snapshots
// written with an older schema are refused, never upgraded.
func Unmarshal(data []byte) (*claim.Person, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode person snapshot: %w", err)
	}
	if env.SchemaVersion < SchemaVersion {
		return nil, &claim.SchemaTooOldError{Found: env.SchemaVersion, Required: SchemaVersion}
	}
	if env.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("snapshot schema version %d is newer than this reader supports (%d)", env.SchemaVersion, SchemaVersion)
	}
	return claim.RestorePerson(env.Person), nil
}
