package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, s := range []string{"7", "7.1", "7.1.0", "7.1.0-rc1"} {
		_, err := Parse(s)
		assert.NoError(t, err, s)
	}
	_, err := Parse("")
	assert.Error(t, err)
	_, err = Parse("seven")
	assert.Error(t, err)
}

func TestOrdering(t *testing.T) {
	v6 := MustParse("6.9.3")
	v7 := MustParse("7.1.0")
	assert.True(t, v6.Less(v7))
	assert.False(t, v7.Less(v6))
	assert.True(t, v7.AtLeast(v7))
	assert.True(t, v7.AtLeast(v6))
	assert.False(t, v6.AtLeast(v7))
	assert.True(t, MustParse("7.1").Equal(v7))

	assert.True(t, Empty.Less(v6))
	assert.False(t, Empty.AtLeast(Empty))
	assert.Equal(t, 0, Empty.Compare(Empty))
}

func TestVersionJSON(t *testing.T) {
	type holder struct {
		V Version `json:"v"`
	}
	bytes, err := json.Marshal(holder{MustParse("7.1.0")})
	require.NoError(t, err)
	assert.Equal(t, `{"v":"7.1.0"}`, string(bytes))

	var h holder
	require.NoError(t, json.Unmarshal(bytes, &h))
	assert.True(t, h.V.Equal(MustParse("7.1.0")))

	require.NoError(t, json.Unmarshal([]byte(`{"v":""}`), &h))
	assert.True(t, h.V.IsEmpty())
}

func TestRevision(t *testing.T) {
	assert.False(t, UnknownRevision.IsKnown())
	assert.True(t, Revision("abc123").IsKnown())
	assert.Equal(t, "<unknown>", UnknownRevision.String())
}
