package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstNotesQuery(t *testing.T) {
	q := FirstNotesQuery(3)

	assert.Contains(t, q, "(e0:Event)-[:NEXT]->(e1:Event)-[:NEXT]->(e2:Event)")
	assert.Contains(t, q, "(e2)--(f2:Fact)")
	assert.Contains(t, q, "e0.start = 0 AND e0.source = $source")
	assert.Contains(t, q, "f2.class AS pitch_2")
	assert.Contains(t, q, "e0.source AS source")
	assert.NotContains(t, q, "e3")
}
