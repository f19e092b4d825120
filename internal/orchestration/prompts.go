package orchestration

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bizmatters/deviation-service/internal/classify"
	"github.com/bizmatters/deviation-service/internal/record"
)

// maxSourceChars bounds the raw source text embedded in a prompt.
const maxSourceChars = 8000

const truncatedMarker = "\n[...TEXT TRUNCATED...]"

const investigatorSystem = "You are an expert pharmaceutical deviation investigator with deep knowledge of GMP, " +
	"root cause analysis and CAPA management. Be specific, factual and concise."

const jsonOnly = "Respond ONLY with a valid JSON object. Do not include explanations or code fences."

const trackRule = "Wrap every piece of new or changed text in /red ... /red markers. " +
	"Never nest markers and always close every marker you open."

const preserveRule = "Keep every existing /red ... /red span exactly as it is. " +
	"Do NOT add any new /red markers."

func truncate(s string) string {
	if len(s) <= maxSourceChars {
		return s
	}
	cut := maxSourceChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedMarker
}

func section(b *strings.Builder, title, body string) {
	b.WriteString(title)
	b.WriteString(":\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n\n")
}

func recordSection(b *strings.Builder, title string, rec *record.Record) {
	section(b, title+" (JSON)", rec.Indent())
}

func documentsSection(b *strings.Builder, title string, docs []string) {
	var parts []string
	for _, d := range docs {
		if d = strings.TrimSpace(d); d != "" {
			parts = append(parts, d)
		}
	}
	if len(parts) == 0 {
		return
	}
	section(b, title, truncate(strings.Join(parts, "\n\n---\n\n")))
}

// sourceText joins the audio transcript and document texts, audio first.
func sourceText(req Request) string {
	var parts []string
	if t := strings.TrimSpace(req.Transcript); t != "" {
		parts = append(parts, t)
	}
	for _, d := range req.Documents {
		if d = strings.TrimSpace(d); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, "\n\n")
}

func modifySystem(document string) string {
	return fmt.Sprintf("You are an AI assistant specialized in updating %s analysis documents. "+
		"You will receive an existing %s document as JSON and a user's spoken instruction as text. "+
		"Your job is to modify ONLY the portion(s) of the document that the instruction requests, "+
		"leaving the rest unchanged. "+
		"Respond ONLY with JSON. You may return either the full updated document or just the fields you changed. "+
		"Do NOT include explanations or code fences.", document, strings.ToLower(document))
}

func modifyPrompt(document string) func(*record.Record, Request) string {
	return func(base *record.Record, req Request) string {
		var b strings.Builder
		recordSection(&b, "Current "+document+" Analysis Document", base)
		section(&b, "User Instruction for Modification", req.Instruction)
		section(&b, "Modification Guidance", classify.Guidance(classify.Classify(req.Instruction)))
		fmt.Fprintf(&b, "Return ONLY the updated %s JSON. You may return either the full document or just the fields you changed. "+
			"Do not include code fences.", strings.ToLower(document))
		return b.String()
	}
}

// perMinuteRules is shared by every per-minute prompt.
const perMinuteRules = `RULES:
- Incorporate only information present in the new transcript fragment.
- Keep all existing content; extend it rather than rewriting it.
- Leave a field unchanged when the fragment says nothing about it.
- Return the complete JSON object with every field shown above.`
