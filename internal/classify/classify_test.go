package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		instruction string
		want        ModificationType
	}{
		{"please change the title to X", TitleChange},
		{"Rename the incident to Line 5 weight failure", TitleChange},
		{"call it the blister pack deviation", TitleChange},
		{"add a note about SME concerns", ContentAddition},
		{"Please include the operator names", ContentAddition},
		{"remove the CAPA section", ContentRemoval},
		{"take out the second paragraph", ContentRemoval},
		{"update the immediate actions with the quarantine details", ContentModification},
		{"Replace the location with Plant 3", ContentModification},
		{"no recognizable verb here", GeneralModification},
		{"", GeneralModification},
		{"We added the batch number", ContentAddition},
		{"Remove the duplicated sentence", ContentRemoval},
		{"please address the contamination finding", ContentAddition},
		{"additional detail on the spill is needed", ContentAddition},
		{"retitle the report", TitleChange},
		{"the subtitle should mention room 4", TitleChange},
		{"the credit note stays", ContentModification},
		{"  CALL IT the Line 3 deviation  ", TitleChange},
	}

	for _, tt := range tests {
		t.Run(tt.instruction, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.instruction))
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// Title keywords outrank everything else.
	assert.Equal(t, TitleChange, Classify("remove the old title and add a new one"))
	// Addition outranks removal and modification.
	assert.Equal(t, ContentAddition, Classify("delete X and add Y"))
	assert.Equal(t, ContentRemoval, Classify("delete X then update Y"))
}

func TestGuidance(t *testing.T) {
	seen := map[string]bool{}
	for _, kind := range []ModificationType{TitleChange, ContentAddition, ContentRemoval, ContentModification, GeneralModification} {
		g := Guidance(kind)
		assert.NotEmpty(t, g)
		assert.False(t, seen[g], "guidance for %s is not specific", kind)
		seen[g] = true
	}
}
