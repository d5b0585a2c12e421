// Package chat maps free-text messages onto task operations. The parser is a
// pure keyword classifier with no state; the handler drives the task facade
// and keeps no conversational memory between calls.
package chat

import (
	"regexp"
	"strings"
)

// Intent is the typed command a message classifies into.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentAddTask
	IntentListTasks
	IntentCompleteTask
	IntentDeleteTask
)

func (i Intent) String() string {
	switch i {
	case IntentAddTask:
		return "add_task"
	case IntentListTasks:
		return "list_tasks"
	case IntentCompleteTask:
		return "complete_task"
	case IntentDeleteTask:
		return "delete_task"
	default:
		return "unknown"
	}
}

// Command is a parsed message: the intent plus whatever arguments could be
// extracted from the text.
type Command struct {
	Intent Intent
	// Title is set for add commands: a quoted phrase, or the text following
	// the add/create keywords.
	Title string
	// TaskRef is set for complete/delete commands: a task id, or the first
	// number in the message ("#3", "task 3") as a 1-based list position.
	TaskRef string
}

var (
	quotedTitleRe   = regexp.MustCompile(`"([^"]*)"`)
	trailingTitleRe = regexp.MustCompile(`(?i)(?:add|create|make) (?:a |an |the )?(?:task|todo) (?:to |for |about )?([^.!?]+?)(?:\.|!|\?|$)`)
	titlePrefixRe   = regexp.MustCompile(`(?i)^(to |that |will )`)
	uuidRefRe       = regexp.MustCompile(`(?i)([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)
	taskRefRe       = regexp.MustCompile(`#?(\d+)`)
)

var (
	addWords      = []string{"add", "create", "make"}
	listWords     = []string{"list", "show", "display", "get"}
	completeWords = []string{"complete", "finish", "done", "mark"}
	deleteWords   = []string{"delete", "remove", "cancel"}
	taskWords     = []string{"task", "todo"}
	listTargets   = []string{"task", "todo", "my"}
)

// Parse classifies a message. Keyword matching only; nothing fancier than the
// frontend's chat box needs.
func Parse(message string) Command {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, addWords) && containsAny(lower, taskWords):
		return Command{Intent: IntentAddTask, Title: extractTitle(message)}

	case containsAny(lower, listWords) && containsAny(lower, listTargets):
		return Command{Intent: IntentListTasks}

	case containsAny(lower, completeWords) && containsAny(lower, taskWords):
		return Command{Intent: IntentCompleteTask, TaskRef: extractTaskRef(message)}

	case containsAny(lower, deleteWords) && containsAny(lower, taskWords):
		return Command{Intent: IntentDeleteTask, TaskRef: extractTaskRef(message)}
	}

	return Command{Intent: IntentUnknown}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// extractTitle pulls a task title out of the message: a quoted phrase wins,
// otherwise the text after the add keywords, with filler prefixes stripped.
func extractTitle(message string) string {
	if m := quotedTitleRe.FindStringSubmatch(message); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := trailingTitleRe.FindStringSubmatch(message); m != nil {
		title := strings.TrimSpace(m[1])
		return strings.TrimSpace(titlePrefixRe.ReplaceAllString(title, ""))
	}
	return ""
}

// extractTaskRef returns the first task reference in the message: a full
// task id when one is present, otherwise the first number (a 1-based
// position in the task list, the way the chat UI displays them), or "".
func extractTaskRef(message string) string {
	if m := uuidRefRe.FindStringSubmatch(message); m != nil {
		return strings.ToLower(m[1])
	}
	if m := taskRefRe.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}
