package tools

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/chris/focus/internal/db"
)

// TemplateTask is one entry of a goal-type task plan. "{min}" in Title or
// Description is replaced with the daily time commitment.
type TemplateTask struct {
	Title         string
	Description   string
	Recurring     bool
	Cadence       string
	DaysFromStart int
	Category      string
}

// EntrepreneurialGoalTypes are the business-focused goal types.
var EntrepreneurialGoalTypes = []string{"mvp_launch", "customer_acquisition", "revenue_generation", "product_validation"}

func daily(title, desc, category string) TemplateTask {
	return TemplateTask{Title: title, Description: desc, Recurring: true, Cadence: "daily", Category: category}
}

func weekly(title, desc string, day int, category string) TemplateTask {
	return TemplateTask{Title: title, Description: desc, Recurring: true, Cadence: "weekly", DaysFromStart: day, Category: category}
}

func milestone(title, desc string, day int, category string) TemplateTask {
	return TemplateTask{Title: title, Description: desc, DaysFromStart: day, Category: category}
}

var templates = map[string][]TemplateTask{
	"skill_learning": {
		daily("Deliberate practice: {min} minutes", "Work on the hardest part of the skill, not the comfortable part", "practice"),
		daily("Log what you practiced", "Two sentences: what you did and what broke", "reflection"),
		weekly("Weekly skill assessment", "Test yourself against a concrete benchmark", 6, "practice"),
		milestone("Week 1 checkpoint: demonstrate the basics", "Record or show someone what you can do now", 7, "reflection"),
		milestone("Day 30 assessment: compare against day one", "Measure progress against your starting point", 30, "reflection"),
	},
	"creative_project": {
		daily("Create for {min} minutes", "Produce something, however rough. No editing during this block", "shipping"),
		daily("Capture one idea", "Write down one idea for the project", "reflection"),
		weekly("Share work in progress", "Show one piece to someone and ask for feedback", 6, "shipping"),
		milestone("Finish a first complete draft", "A whole draft, end to end, however imperfect", 14, "shipping"),
		milestone("Publish the first deliverable", "Put it where other people can see it", 30, "shipping"),
	},
	"fitness": {
		daily("Workout: {min} minutes", "Train at a pace you can sustain, no skipped days", "training"),
		daily("Stretch and recover", "Ten minutes of mobility work", "health"),
		weekly("Progressive overload check", "Add reps, weight or distance to one exercise", 6, "training"),
		milestone("Baseline fitness test", "Record pushups, plank time and a timed mile", 0, "training"),
		milestone("Day 30 fitness test", "Repeat the baseline test and compare", 30, "training"),
	},
	"habit_building": {
		daily("Do the habit: {min} minutes", "Same time, same place, every day", "practice"),
		daily("Mark the habit done", "Track the streak honestly", "reflection"),
		weekly("Fix one friction point", "Change your environment so the habit is easier", 6, "reflection"),
		milestone("Set up the environment", "Remove the first obstacle before day one ends", 0, "practice"),
		milestone("Day 21 review", "Decide what to keep, drop or adjust", 21, "reflection"),
	},
	"career": {
		daily("Career work: {min} minutes", "Portfolio, applications or skill building", "learning"),
		daily("Reach out to one person in your field", "A short, specific message", "customer"),
		weekly("Update your portfolio or resume", "One concrete improvement", 6, "shipping"),
		milestone("Define the target role", "Write down the role, company type and gap to close", 2, "reflection"),
		milestone("Ten conversations held", "Count real conversations, not messages sent", 30, "customer"),
	},
	"personal_development": {
		daily("Focused work on yourself: {min} minutes", "Reading, practice or the behavior you are changing", "learning"),
		daily("Evening journal", "What went well, what you avoided", "reflection"),
		weekly("Weekly behavior review", "Count how often you acted the new way", 6, "reflection"),
		milestone("Name the behavior to change", "One sentence, specific and observable", 1, "reflection"),
		milestone("Day 30 review", "Compare this week's behavior to the first week", 30, "reflection"),
	},
	"mvp_launch": {
		daily("Build: {min} minutes on the MVP", "Only work on features a first customer needs", "shipping"),
		daily("Talk to one potential customer", "Ask about their problem, not your solution", "customer"),
		weekly("Ship something users can touch", "Deploy the current build, however small", 6, "shipping"),
		milestone("Define the single core feature", "Write down the one thing the MVP must do", 2, "shipping"),
		milestone("Launch to the first ten users", "Real users, not friends being polite", 30, "shipping"),
	},
	"customer_acquisition": {
		daily("Customer outreach: {min} minutes", "Contact new prospects directly", "customer"),
		daily("Follow up with yesterday's conversations", "Every conversation gets a follow-up", "customer"),
		weekly("Review the conversion funnel", "Count contacts, replies, calls and conversions", 6, "revenue"),
		milestone("Write the ideal customer profile", "Who they are and where to find them", 1, "customer"),
		milestone("First ten customers", "Paying or committed users, counted honestly", 30, "customer"),
	},
	"revenue_generation": {
		daily("Revenue work: {min} minutes", "Sales calls, offers or pricing experiments", "revenue"),
		daily("Ask one person to buy", "A direct ask with a price", "revenue"),
		weekly("Run one pricing test", "Change one variable and measure the result", 6, "revenue"),
		milestone("Set a revenue target", "A number and a date", 1, "revenue"),
		milestone("First revenue review", "Compare actual revenue to the target", 30, "revenue"),
	},
	"product_validation": {
		daily("Validation work: {min} minutes", "Interviews, landing page tests or prototype sessions", "customer"),
		daily("Record one piece of user feedback", "Their words, not your interpretation", "customer"),
		weekly("Synthesize feedback into one decision", "Keep, kill or change one assumption", 6, "reflection"),
		milestone("List the riskiest assumptions", "The three things that would kill the idea if wrong", 1, "reflection"),
		milestone("Go or no-go decision", "Decide based on the evidence collected", 30, "reflection"),
	},
}

// tierTask is the extra task added for the user's time commitment.
func tierTask(minutes int) TemplateTask {
	switch {
	case minutes <= 30:
		return weekly("Plan next week's {min}-minute sessions", "Short sessions need a plan so no minute is wasted", 6, "reflection")
	case minutes <= 90:
		return weekly("Extended session: double your usual {min} minutes", "One longer block each week to go deeper", 5, "practice")
	default:
		return milestone("Mid-point deep review", "You are investing serious time; check it is going to the right work", 14, "reflection")
	}
}

// Breakdown turns a goal type and daily time commitment into task inputs
// with due dates offset from start. It is deterministic.
func Breakdown(goalType string, minutes int, start time.Time) ([]db.TaskInput, error) {
	tmpl, ok := templates[goalType]
	if !ok {
		return nil, fmt.Errorf("no breakdown template for goal type %q", goalType)
	}
	plan := append(slices.Clone(tmpl), tierTask(minutes))

	mins := strconv.Itoa(minutes)
	out := make([]db.TaskInput, 0, len(plan))
	for _, t := range plan {
		out = append(out, db.TaskInput{
			Title:       strings.ReplaceAll(t.Title, "{min}", mins),
			Description: strings.ReplaceAll(t.Description, "{min}", mins),
			DueDate:     start.AddDate(0, 0, t.DaysFromStart).Format("2006-01-02"),
			IsRecurring: t.Recurring,
			Cadence:     t.Cadence,
			Category:    t.Category,
		})
	}
	return out, nil
}
