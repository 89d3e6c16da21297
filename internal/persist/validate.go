package persist

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"pkt.systems/tabforge/schema"
)

//go:embed snapshot.schema.json
var snapshotSchema []byte

var snapshotSchemaLoader = gojsonschema.NewBytesLoader(snapshotSchema)

// ValidateSnapshot checks data against the snapshot JSON schema and decodes it.
func ValidateSnapshot(data []byte) (schema.Snapshot, error) {
	result, err := gojsonschema.Validate(snapshotSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return schema.Snapshot{}, fmt.Errorf("%w: %v", schema.ErrInvalidSnapshot, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return schema.Snapshot{}, fmt.Errorf("%w: %s", schema.ErrInvalidSnapshot, strings.Join(problems, "; "))
	}
	var snap schema.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return schema.Snapshot{}, fmt.Errorf("%w: %v", schema.ErrInvalidSnapshot, err)
	}
	return snap, nil
}
