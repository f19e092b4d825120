package orchestration

import (
	"strings"
)

// Category is the kind of a supporting document attached to a deviation.
type Category string

const (
	CategoryBatchRecords Category = "Batch_records"
	CategorySOPs         Category = "SOP_s"
	CategoryForms        Category = "Forms"
	CategoryInterviews   Category = "Interviews"
	CategoryLogbooks     Category = "Logbooks"
	CategoryEmails       Category = "Email_references"
	CategoryCertificates Category = "Certificates"
)

// Categories lists every category in tie-break order.
var Categories = []Category{
	CategoryBatchRecords, CategorySOPs, CategoryForms, CategoryInterviews,
	CategoryLogbooks, CategoryEmails, CategoryCertificates,
}

func (c Category) valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// collectionTitle names a set of documents that share one category.
func (c Category) collectionTitle() string {
	switch c {
	case CategoryBatchRecords:
		return "Batch Production Documents"
	case CategorySOPs:
		return "Standard Operating Procedures"
	case CategoryForms:
		return "Form Collection"
	case CategoryInterviews:
		return "Interview Records"
	case CategoryLogbooks:
		return "Log Records"
	case CategoryEmails:
		return "Email Communications"
	case CategoryCertificates:
		return "Certificate Collection"
	}
	return "Document Collection"
}

type indicators struct {
	strong, medium, weak []string
}

var categoryIndicators = map[Category]indicators{
	CategoryBatchRecords: {
		strong: []string{"batch number", "lot number", "batch id", "lot id", "production date",
			"batch size", "manufacturing date", "yield", "batch record", "lot record"},
		medium: []string{"batch", "lot", "production", "manufacturing", "yield %", "quantity produced"},
		weak:   []string{"produced", "manufactured", "date of production"},
	},
	CategorySOPs: {
		strong: []string{"standard operating procedure", "sop number", "procedure number",
			"work instruction", "operating instruction", "method number"},
		medium: []string{"procedure", "protocol", "method", "instruction", "step 1", "step 2", "process description"},
		weak:   []string{"steps", "process", "operation", "technique"},
	},
	CategoryForms: {
		strong: []string{"form number", "form id", "template", "checklist", "inspection form",
			"fill in", "complete this form", "signature required"},
		medium: []string{"form", "checklist", "inspection", "check one", "mark appropriate",
			"date:", "name:", "signature:", "approved by"},
		weak: []string{"fill", "complete", "check", "select", "choose"},
	},
	CategoryInterviews: {
		strong: []string{"interview transcript", "interview record", "meeting minutes",
			"interviewee:", "interviewer:", "q:", "a:"},
		medium: []string{"interview", "discussion", "conversation", "dialogue", "meeting",
			"question", "answer", "response"},
		weak: []string{"asked", "replied", "stated", "mentioned"},
	},
	CategoryLogbooks: {
		strong: []string{"daily log", "shift log", "maintenance log", "equipment log",
			"logbook entry", "recorded by", "shift report"},
		medium: []string{"log entry", "daily record", "shift", "maintenance", "equipment",
			"time:", "logged", "recorded"},
		weak: []string{"daily", "entry", "record", "noted"},
	},
	CategoryEmails: {
		strong: []string{"from:", "to:", "subject:", "sent:", "received:", "cc:", "bcc:",
			"email address", "reply", "forward"},
		medium: []string{"email", "message", "correspondence", "communication",
			"dear", "sincerely", "regards", "best regards"},
		weak: []string{"sent", "received", "message", "communication"},
	},
	CategoryCertificates: {
		strong: []string{"certificate of", "certification", "certified that", "has completed",
			"training certificate", "completion certificate", "qualified"},
		medium: []string{"certificate", "training", "completion", "qualification", "accredited",
			"issued by", "valid until", "expires"},
		weak: []string{"certified", "completed", "qualified", "training"},
	},
}

// CategorizeText classifies a document by weighted keyword scores over its
// text and filename. It needs no model and is used whenever the model's
// classification is unusable. Text shorter than ten characters is a form.
func CategorizeText(text, filename string) Category {
	if len(strings.TrimSpace(text)) < 10 {
		return CategoryForms
	}
	lower := strings.ToLower(text)
	name := strings.ToLower(filename)

	scores := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		ind := categoryIndicators[c]
		score := 0
		for _, k := range ind.strong {
			if strings.Contains(lower, k) {
				score += 3
			}
			if strings.Contains(name, k) {
				score += 2
			}
		}
		for _, k := range ind.medium {
			if strings.Contains(lower, k) {
				score += 2
			}
			if strings.Contains(name, k) {
				score++
			}
		}
		for _, k := range ind.weak {
			if strings.Contains(lower, k) {
				score++
			}
		}
		scores[c] = score
	}

	lines := strings.Split(text, "\n")
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "1.") || strings.HasPrefix(l, "2.") || strings.HasPrefix(l, "3.") ||
			strings.HasPrefix(l, "Step 1") || strings.HasPrefix(l, "Step 2") {
			scores[CategorySOPs] += 2
			break
		}
	}
	for _, l := range lines[:min(len(lines), 10)] {
		if strings.Count(l, ":") == 1 {
			if scores[CategoryEmails] > 0 {
				scores[CategoryEmails] += 2
			}
			if scores[CategoryForms] > 0 {
				scores[CategoryForms]++
			}
			break
		}
	}

	best, top := CategoryForms, 0
	for _, c := range Categories {
		if scores[c] > top {
			best, top = c, scores[c]
		}
	}
	if top > 0 {
		return best
	}

	if len(text) > 2000 && strings.Contains(lower, "step") {
		return CategorySOPs
	}
	return CategoryForms
}
