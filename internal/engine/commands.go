package engine

import (
	"regexp"
	"strings"
)

// commandPhrases maps fixed phrases to local actions. Matching is by
// substring against the lowercased input, so "please clear my bills" works.
var commandPhrases = []struct {
	phrase string
	action Action
}{
	{"reset everything", ActionResetAll},
	{"start over", ActionResetAll},
	{"start from scratch", ActionResetAll},
	{"clear bills", ActionClearBills},
	{"clear my bills", ActionClearBills},
	{"remove all bills", ActionClearBills},
	{"clear goals", ActionClearGoals},
	{"clear my goals", ActionClearGoals},
	{"remove all goals", ActionClearGoals},
	{"clear schedule", ActionClearSchedule},
	{"clear the schedule", ActionClearSchedule},
	{"unschedule everything", ActionClearSchedule},
	{"clear labels", ActionClearLabels},
	{"remove all labels", ActionClearLabels},
	{"reset preferences", ActionResetPrefs},
	{"reset settings", ActionResetPrefs},
}

// negationRe guards against "don't clear my bills" triggering an action.
var negationRe = regexp.MustCompile(`(?i)\b(don'?t|do not|never|won'?t|without)\b`)

// ParseLocalCommand recognizes fixed local commands in free text. This is a
// deterministic intent classifier, not a model call: it only ever fires on
// the phrase table above, and any negation word in the input suppresses it
// entirely.
func ParseLocalCommand(text string) (ActionSet, bool) {
	if negationRe.MatchString(text) {
		return nil, false
	}

	lower := strings.ToLower(text)
	actions := ActionSet{}
	for _, c := range commandPhrases {
		if strings.Contains(lower, c.phrase) {
			actions[c.action] = true
		}
	}
	if len(actions) == 0 {
		return nil, false
	}
	return actions, true
}
