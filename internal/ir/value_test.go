package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRFloat(0.5)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestUnmarshalIRValueNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected IRValue
	}{
		{"int", `29`, IRInt(29)},
		{"negative int", `-3`, IRInt(-3)},
		{"float", `0.5`, IRFloat(0.5)},
		{"exponent", `1e3`, IRFloat(1000)},
		{"null", `null`, IRNull{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := UnmarshalIRValue([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestUnmarshalVertexDocument(t *testing.T) {
	doc := `{"id":"1","label":"person","name":["marko"],"_edge":[{"id":"7","label":"knows","_sinkV":"2","weight":0.5}]}`

	var obj IRObject
	require.NoError(t, json.Unmarshal([]byte(doc), &obj))

	assert.Equal(t, IRString("1"), obj[KeyID])
	assert.Equal(t, IRArray{IRString("marko")}, obj["name"])

	edges, ok := obj[KeyEdge].(IRArray)
	require.True(t, ok)
	require.Len(t, edges, 1)
	edge := edges[0].(IRObject)
	assert.Equal(t, IRFloat(0.5), edge["weight"])
}

func TestUnmarshalIRObjectRejectsArray(t *testing.T) {
	var obj IRObject
	err := json.Unmarshal([]byte(`[1,2]`), &obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected JSON object")
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"age":    float64(29),
		"weight": 0.4,
		"tags":   []any{"a", true},
	})
	require.NoError(t, err)

	obj := v.(IRObject)
	assert.Equal(t, IRInt(29), obj["age"])
	assert.Equal(t, IRFloat(0.4), obj["weight"])
	assert.Equal(t, IRArray{IRString("a"), IRBool(true)}, obj["tags"])

	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}

func TestEqualNumericCrossType(t *testing.T) {
	assert.True(t, Equal(IRInt(2), IRFloat(2)))
	assert.False(t, Equal(IRInt(2), IRString("2")))
	assert.True(t, Equal(IRNull{}, nil))
	assert.True(t, Equal(
		IRObject{"a": IRArray{IRInt(1)}},
		IRObject{"a": IRArray{IRInt(1)}},
	))
	assert.False(t, Equal(IRArray{IRInt(1)}, IRArray{IRInt(1), IRInt(2)}))
}

func TestCloneIsDeep(t *testing.T) {
	orig := IRObject{"name": IRArray{IRString("marko")}}
	clone := orig.Clone()

	clone["name"].(IRArray)[0] = IRString("vadas")
	assert.Equal(t, IRString("marko"), orig["name"].(IRArray)[0])
}

func TestText(t *testing.T) {
	assert.Equal(t, "marko", Text(IRString("marko")))
	assert.Equal(t, "29", Text(IRInt(29)))
	assert.Equal(t, "0.5", Text(IRFloat(0.5)))
	assert.Equal(t, "true", Text(IRBool(true)))
	assert.Equal(t, `["a"]`, Text(IRArray{IRString("a")}))
}
