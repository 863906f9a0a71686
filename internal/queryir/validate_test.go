package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gview/internal/ir"
)

func TestValidatePortableBlock(t *testing.T) {
	block := &SelectBlock{
		Select: []SelectElement{{Expr: Star{Table: "N_0"}, Alias: "N_0"}},
		From:   []TableRef{NamedTable{Name: "Node", Alias: "N_0"}},
		Where:  eq("N_0", "name", ir.IRString("marko")),
	}

	result := Validate(block)

	assert.True(t, result.IsPortable)
	assert.Empty(t, result.Warnings)
}

func TestValidateWarnings(t *testing.T) {
	tests := []struct {
		name    string
		block   *SelectBlock
		warning string
	}{
		{
			name:    "nil block",
			block:   nil,
			warning: "nil select block",
		},
		{
			name: "empty projection",
			block: &SelectBlock{
				From: []TableRef{NamedTable{Name: "Node", Alias: "N_0"}},
			},
			warning: "projects nothing",
		},
		{
			name: "table function",
			block: &SelectBlock{
				Select: []SelectElement{{Expr: Star{Table: "E_1"}}},
				From: []TableRef{
					NamedTable{Name: "Node", Alias: "N_0"},
					TableFunction{Name: "Edges", Alias: "E_1"},
				},
			},
			warning: "table function Edges AS E_1",
		},
		{
			name: "null comparison in subquery",
			block: &SelectBlock{
				Select: []SelectElement{{Expr: Star{Table: "N_0"}}},
				From:   []TableRef{NamedTable{Name: "Node", Alias: "N_0"}},
				Where: Exists{Block: &SelectBlock{
					Select: []SelectElement{{Expr: Literal{Value: ir.IRInt(1)}}},
					Where:  eq("N_0", "name", ir.IRNull{}),
				}},
			},
			warning: "against NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.block)
			assert.False(t, result.IsPortable)
			require.NotEmpty(t, result.Warnings)
			assert.Contains(t, result.Warnings[0], tt.warning)
		})
	}
}
