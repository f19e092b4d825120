package orchestration

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bizmatters/deviation-service/internal/audit"
	"github.com/bizmatters/deviation-service/internal/fault"
	"github.com/bizmatters/deviation-service/internal/parse"
	"github.com/bizmatters/deviation-service/internal/record"
)

const attachmentsWorkflow = "attachments"

const untitled = "User Title Not Specified"

const classifierSystem = "You are an expert document classifier for pharmaceutical deviation investigations. " +
	"Be precise and professional in your analysis."

// AttachedFile is one classified upload.
type AttachedFile struct {
	FileType        Category `json:"file_type"`
	DisplayName     string   `json:"display_name"`
	Filename        string   `json:"filename"`
	VoiceTitle      string   `json:"voice_title"`
	Category        Category `json:"category"`
	Confidence      int      `json:"confidence,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty"`
	ContentEvidence string   `json:"content_evidence,omitempty"`
}

// AttachmentAnalysis is the classification of a set of supporting documents,
// titled from an optional voice recording.
type AttachmentAnalysis struct {
	SuggestedTitle string         `json:"AI_suggested_Title"`
	UserAudio      string         `json:"user_audio,omitempty"`
	Files          []AttachedFile `json:"files"`
}

type docInfo struct {
	filename   string
	category   Category
	title      string
	confidence int
	reasoning  string
	evidence   string
}

// AnalyzeAttachments classifies each document and titles it, matching the
// titles spoken in voice to files when a recording is given. A model answer
// that cannot be used falls back to keyword classification; collaborator
// errors are returned.
func (s *Service) AnalyzeAttachments(ctx context.Context, docs []Upload, voice *Upload, userID string) (*AttachmentAnalysis, error) {
	const op = "attachments.analyze"

	if len(docs) == 0 {
		return nil, fault.Input(op, "at least one document is required")
	}
	var audio []Upload
	if voice != nil {
		audio = []Upload{*voice}
	}
	texts, err := s.gather(ctx, op, audio, docs)
	if err != nil {
		return nil, err
	}

	infos := make([]docInfo, len(docs))
	fallback := false
	for i, u := range docs {
		info, ok, err := s.classifyDocument(ctx, op, u.Filename, texts.byUpload[i])
		if err != nil {
			return nil, err
		}
		fallback = fallback || !ok
		infos[i] = info
	}

	spoken := strings.TrimSpace(strings.Join(texts.transcripts, " "))
	out, ok, err := s.matchTitles(ctx, op, infos, spoken)
	if err != nil {
		return nil, err
	}
	fallback = fallback || !ok
	out.UserAudio = spoken

	s.logger.Info("attachments analyzed",
		zap.Int("files", len(out.Files)),
		zap.Bool("voice", spoken != ""),
		zap.Bool("fallback", fallback))
	s.audit(ctx, op, audit.Event{Workflow: attachmentsWorkflow, Stage: "analyze", UserID: userID, Fallback: fallback})
	return out, nil
}

// classifyDocument asks the model for a category and title. ok is false when
// the keyword classifier had to be used instead.
func (s *Service) classifyDocument(ctx context.Context, op, filename, text string) (docInfo, bool, error) {
	info := docInfo{filename: filename, title: stem(filename)}
	if strings.TrimSpace(text) == "" {
		info.category = CategoryForms
		info.reasoning = "No text could be extracted from the file"
		return info, true, nil
	}

	raw, err := s.complete(ctx, classifyPrompt(filename, text), classifierSystem)
	if err != nil {
		return info, false, fault.Collaborator(op, err).With("filename", filename)
	}
	rec, ok := parse.ExtractJSON(raw)
	category := Category(rec.GetString("category"))
	if !ok || !category.valid() {
		s.logger.Warn("document classification unusable, using keyword rules",
			zap.String("filename", filename),
			zap.String("response", excerpt(raw)))
		info.category = CategorizeText(text, filename)
		info.evidence = "Rule-based classification based on content analysis"
		return info, false, nil
	}

	info.category = category
	if t := strings.TrimSpace(rec.GetString("title")); t != "" {
		info.title = t
	}
	info.confidence = confidence(rec)
	info.reasoning = rec.GetString("reasoning")
	if v, ok := rec.Get("key_content"); ok {
		info.evidence = joinText(v)
	}
	return info, true, nil
}

func classifyPrompt(filename, text string) string {
	var b strings.Builder
	b.WriteString("Classify the document into exactly one of these categories:\n\n")
	b.WriteString(`1. Batch_records - production batch records, lot records, manufacturing logs
2. SOP_s - standard operating procedures, work instructions, process methods
3. Forms - forms, templates, checklists, inspection sheets
4. Interviews - interview transcripts, meeting minutes, Q&A sessions
5. Logbooks - daily logs, shift reports, maintenance logs, equipment logs
6. Email_references - email communications, correspondence
7. Certificates - certificates, training records, qualifications

`)
	section(&b, "DOCUMENT FILENAME", filename)
	section(&b, "DOCUMENT CONTENT", truncate(text))
	b.WriteString(`Respond with a JSON object containing:
- "category": one category name from the list above
- "confidence": a score from 0 to 100
- "title": a descriptive title of two to eight words
- "reasoning": a brief explanation
- "key_content": two or three phrases that support the classification
`)
	b.WriteString(jsonOnly)
	return b.String()
}

// matchTitles assigns each file its title. Without a recording the
// classifier's titles are used and no model call is made.
func (s *Service) matchTitles(ctx context.Context, op string, infos []docInfo, spoken string) (*AttachmentAnalysis, bool, error) {
	out := &AttachmentAnalysis{SuggestedTitle: suggestedTitle(infos), Files: make([]AttachedFile, len(infos))}
	for i, info := range infos {
		out.Files[i] = attached(info, info.title, info.confidence, info.reasoning)
	}
	if spoken == "" {
		return out, true, nil
	}

	raw, err := s.complete(ctx, matchPrompt(infos, spoken), classifierSystem)
	if err != nil {
		return nil, false, fault.Collaborator(op, err).With("transcript", excerpt(spoken))
	}
	rec, ok := parse.ExtractJSON(raw)
	mappings, _ := rec.Get("file_mappings")
	if !ok || len(mappings.Items()) == 0 {
		s.logger.Warn("title matching unusable, splitting the recording",
			zap.String("response", excerpt(raw)))
		for i, title := range spokenTitles(spoken, len(infos)) {
			out.Files[i] = attached(infos[i], title, 0, "")
			out.Files[i].ContentEvidence = "Rule-based classification based on content analysis"
		}
		return out, false, nil
	}

	for _, m := range mappings.Items() {
		mr, ok := m.Record()
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(numeral(mr, "file_index"))
		if err != nil || idx < 0 || idx >= len(infos) {
			continue
		}
		title := strings.TrimSpace(mr.GetString("matched_title"))
		if title == "" {
			title = untitled
		}
		out.Files[idx] = attached(infos[idx], title, confidence(mr), mr.GetString("reasoning"))
	}
	if t := strings.TrimSpace(rec.GetString("overall_title")); t != "" {
		out.SuggestedTitle = t
	}
	return out, true, nil
}

func matchPrompt(infos []docInfo, spoken string) string {
	var b strings.Builder
	b.WriteString("The user uploaded several files and then said the titles they want for them. " +
		"Match each file to the spoken title that fits it best.\n\n")
	section(&b, "VOICE TRANSCRIPTION", spoken)
	var files strings.Builder
	for i, info := range infos {
		evidence := info.evidence
		if r := []rune(evidence); len(r) > 200 {
			evidence = string(r[:200])
		}
		fmt.Fprintf(&files, "%d. filename: %s; category: %s; key content: %s\n", i, info.filename, info.category, evidence)
	}
	section(&b, "FILES", files.String())
	b.WriteString(`Consider file content and category, the order titles were spoken in, keywords, partial matches and synonyms.

Respond with a JSON object containing:
- "overall_title": a descriptive title for the whole collection
- "file_mappings": an array of {"file_index": <number from the list>, "matched_title": "...", "confidence": 0-100, "reasoning": "..."}
`)
	b.WriteString(jsonOnly)
	return b.String()
}

func attached(info docInfo, title string, conf int, reasoning string) AttachedFile {
	return AttachedFile{
		FileType:        info.category,
		DisplayName:     title + " - " + info.filename,
		Filename:        info.filename,
		VoiceTitle:      title,
		Category:        info.category,
		Confidence:      conf,
		Reasoning:       reasoning,
		ContentEvidence: info.evidence,
	}
}

func suggestedTitle(infos []docInfo) string {
	if len(infos) == 0 {
		return "Document Collection"
	}
	first := infos[0].category
	for _, info := range infos[1:] {
		if info.category != first {
			return fmt.Sprintf("Mixed Document Collection (%d files)", len(infos))
		}
	}
	return first.collectionTitle()
}

// spokenTitles splits a recording into one title per file. A single file
// takes the whole recording; otherwise titles are separated by commas,
// semicolons or line breaks and files past the last title stay untitled.
func spokenTitles(spoken string, n int) []string {
	out := make([]string, n)
	if n == 1 {
		out[0] = spoken
		return out
	}
	parts := strings.FieldsFunc(spoken, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	var titles []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			titles = append(titles, p)
		}
	}
	for i := range out {
		out[i] = untitled
		if i < len(titles) {
			out[i] = titles[i]
		}
	}
	return out
}

func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// numeral returns the value at key as text, whether the model sent it as a
// number or a string.
func numeral(rec *record.Record, key string) string {
	v, _ := rec.Get(key)
	return strings.TrimSpace(v.String())
}

// confidence reads a 0-100 score, rounding fractions and clamping the range.
func confidence(rec *record.Record) int {
	f, err := strconv.ParseFloat(strings.TrimSuffix(numeral(rec, "confidence"), "%"), 64)
	if err != nil {
		return 0
	}
	return int(min(max(f, 0), 100) + 0.5)
}

func joinText(v record.Value) string {
	items := v.Items()
	if len(items) == 0 {
		return v.String()
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.String())
	}
	return strings.Join(parts, "; ")
}

// RetitleAttachments rewrites existing attachment titles as instructed. The
// answer must hold exactly one title per existing title.
func (s *Service) RetitleAttachments(ctx context.Context, instruction string, titles []string, userID string) ([]string, error) {
	const op = "attachments.retitle"

	if strings.TrimSpace(instruction) == "" {
		return nil, fault.Input(op, "instruction is required")
	}
	if len(titles) == 0 {
		return nil, fault.Input(op, "at least one existing title is required")
	}

	raw, err := s.complete(ctx, retitlePrompt(instruction, titles), classifierSystem)
	if err != nil {
		return nil, fault.Collaborator(op, err).With("instruction", excerpt(instruction))
	}
	rec, ok := parse.ExtractJSON(raw)
	if !ok {
		return nil, fault.Parse(op, errNoJSON).With("response", excerpt(raw))
	}
	v, _ := rec.Get("new_file_titles")
	items := v.Items()
	if len(items) != len(titles) {
		return nil, fault.Validation(op, "new_file_titles").
			With("want", strconv.Itoa(len(titles))).
			With("got", strconv.Itoa(len(items)))
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.TrimSpace(it.String())
		if out[i] == "" {
			out[i] = titles[i]
		}
	}

	s.audit(ctx, op, audit.Event{Workflow: attachmentsWorkflow, Stage: "retitle", UserID: userID})
	return out, nil
}

func retitlePrompt(instruction string, titles []string) string {
	var b strings.Builder
	b.WriteString("Rename the attachments of a deviation record as the user asks.\n\n")
	section(&b, "USER INSTRUCTION", instruction)
	var list strings.Builder
	for i, t := range titles {
		fmt.Fprintf(&list, "%d. %s\n", i+1, t)
	}
	section(&b, "EXISTING FILE TITLES", list.String())
	b.WriteString(`Return {"new_file_titles": [...]} with exactly one title per existing title, in the same order. ` +
		"Keep titles the instruction does not mention unchanged.\n")
	b.WriteString(jsonOnly)
	return b.String()
}
