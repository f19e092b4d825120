// Package classify tags a spoken modification instruction with the kind of
// change it asks for, so the next prompt can carry matching guidance.
package classify

import "strings"

// ModificationType is the intent of one instruction.
type ModificationType string

const (
	TitleChange         ModificationType = "title_change"
	ContentAddition     ModificationType = "content_addition"
	ContentRemoval      ModificationType = "content_removal"
	ContentModification ModificationType = "content_modification"
	GeneralModification ModificationType = "general_modification"
)

type rule struct {
	kind     ModificationType
	keywords []string
	guidance string
}

// matches reports whether any keyword occurs anywhere in text. Keywords are
// plain substrings, so "retitle" counts as a title keyword.
func (r rule) matches(text string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Evaluated in order; the first match wins.
var rules = []rule{
	{
		kind:     TitleChange,
		keywords: []string{"title", "rename", "call it", "name it"},
		guidance: "The user wants to change the title. Update only the title field(s) and leave every other field exactly as it is.",
	},
	{
		kind:     ContentAddition,
		keywords: []string{"add", "include", "append", "insert"},
		guidance: "The user wants to add information. Append the new content to the most relevant field(s) without rewriting or removing existing content.",
	},
	{
		kind:     ContentRemoval,
		keywords: []string{"remove", "delete", "take out", "eliminate"},
		guidance: "The user wants to remove information. Delete only the content the instruction names and keep the rest of each affected field intact.",
	},
	{
		kind:     ContentModification,
		keywords: []string{"change", "update", "modify", "edit", "replace"},
		guidance: "The user wants to change existing content. Rewrite only the part the instruction refers to and preserve the surrounding text.",
	},
}

const generalGuidance = "Apply the instruction to the field(s) it most clearly refers to. Leave every unrelated field unchanged."

// Classify returns the modification type of instruction.
func Classify(instruction string) ModificationType {
	text := strings.ToLower(instruction)
	for _, r := range rules {
		if r.matches(text) {
			return r.kind
		}
	}
	return GeneralModification
}

// Guidance returns the prompt guidance for t.
func Guidance(t ModificationType) string {
	for _, r := range rules {
		if r.kind == t {
			return r.guidance
		}
	}
	return generalGuidance
}
