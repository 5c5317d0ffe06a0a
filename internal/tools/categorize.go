package tools

import (
	"strings"

	"github.com/chris/focus/internal/db"
)

// categoryKeywords is the fallback for tasks stored without a category.
// Order matters: the first matching category wins.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"customer", []string{"customer", "client", "user interview", "outreach", "prospect"}},
	{"revenue", []string{"revenue", "sale", "pricing", "invoice", "paid", "sell"}},
	{"shipping", []string{"ship", "deploy", "launch", "release", "publish"}},
	{"training", []string{"workout", "train", "run ", "lift", "pushup", "cardio"}},
	{"health", []string{"sleep", "meal", "stretch", "walk", "water"}},
	{"practice", []string{"practice", "drill", "rehearse", "exercise"}},
	{"learning", []string{"read", "study", "course", "learn", "lesson"}},
	{"reflection", []string{"review", "reflect", "journal", "retro", "checkpoint"}},
}

// CategoryOf returns the task's category, inferring one from its title and
// description when none was stored.
func CategoryOf(t db.Task) string {
	if t.Category != "" {
		return t.Category
	}
	text := strings.ToLower(t.Title + " " + t.Description + " ")
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(text, w) {
				return ck.category
			}
		}
	}
	return "other"
}

// categoryBreakdown counts tasks per category.
func categoryBreakdown(tasks []db.Task) map[string]int {
	out := make(map[string]int)
	for _, t := range tasks {
		out[CategoryOf(t)]++
	}
	return out
}
