package rank

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/musypher/internal/core/model"
)

// Row values come back loosely typed from the store: integers as int64,
// floats as float64, absent attributes as nil. Missing data never scores;
// the helpers fold it to zero values or nil pointers.

func rowValue(rec *neo4j.Record, key string) interface{} {
	if rec == nil {
		return nil
	}
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	return v
}

func rowString(rec *neo4j.Record, key string) string {
	if s, ok := rowValue(rec, key).(string); ok {
		return s
	}
	return ""
}

func rowFloatPtr(rec *neo4j.Record, key string) *float64 {
	switch v := rowValue(rec, key).(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func rowFloat(rec *neo4j.Record, key string) float64 {
	if p := rowFloatPtr(rec, key); p != nil {
		return *p
	}
	return 0
}

func rowInt(rec *neo4j.Record, key string) int {
	switch v := rowValue(rec, key).(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func rowIntPtr(rec *neo4j.Record, key string) *int {
	switch v := rowValue(rec, key).(type) {
	case int64:
		i := int(v)
		return &i
	case int:
		return &v
	case float64:
		i := int(v)
		return &i
	}
	return nil
}

// rowPitch reads the pitch aliases of fact j. The store spells sharps 's'
// on accid or accid_ges; rests project no class at all.
func rowPitch(rec *neo4j.Record, j int) model.Pitch {
	var p model.Pitch
	p.Class = rowString(rec, fmt.Sprintf("pitch_%d", j))
	p.Octave = rowIntPtr(rec, fmt.Sprintf("octave_%d", j))
	accid := rowString(rec, fmt.Sprintf("accid_%d", j))
	if accid == "" {
		accid = rowString(rec, fmt.Sprintf("accid_ges_%d", j))
	}
	if a, err := model.NormalizeAccid(accid); err == nil {
		p.Accid = a
	}
	return p
}
