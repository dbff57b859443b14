// Package toolactivity summarizes tool-call records for display. Records are
// read as snapshots and never modified.
package toolactivity

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/killallgit/markstream/pkg/message"
)

const (
	summaryWidth = 60
	previewWidth = 80
	ellipsis     = "…"
)

var keySpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("markstream/tool-activity"))

// Activity is the display form of one tool call.
type Activity struct {
	Record  message.ToolCallRecord
	Key     string
	Icon    string
	Label   string
	Summary string
	Preview string
	Err     error
}

// Line returns a one-line summary such as "✓ Done search(q=go)".
func (a Activity) Line() string {
	line := a.Icon + " " + a.Label + " " + a.Summary
	if a.Preview != "" {
		line += " → " + a.Preview
	}
	return line
}

type statusInfo struct {
	icon  string
	label string
}

var statuses = map[message.ToolStatus]statusInfo{
	message.ToolPending:   {icon: "○", label: "Queued"},
	message.ToolExecuting: {icon: "◐", label: "Running"},
	message.ToolCompleted: {icon: "✓", label: "Done"},
	message.ToolError:     {icon: "✗", label: "Failed"},
}

// Icon returns the status glyph. Unknown statuses get a neutral dot.
func Icon(s message.ToolStatus) string {
	if info, ok := statuses[s]; ok {
		return info.icon
	}
	return "·"
}

// Label returns the status label. Unknown statuses are shown verbatim.
func Label(s message.ToolStatus) string {
	if info, ok := statuses[s]; ok {
		return info.label
	}
	if s == "" {
		return "Unknown"
	}
	return string(s)
}

// Extract builds one Activity per record, in order. A record whose parameters
// cannot be decoded still produces an Activity, with Err set.
func Extract(records []message.ToolCallRecord) []Activity {
	if len(records) == 0 {
		return nil
	}

	activities := make([]Activity, 0, len(records))
	for i, r := range records {
		a := Activity{
			Record: r,
			Key:    Key(r, i),
			Icon:   Icon(r.Status),
			Label:  Label(r.Status),
		}

		params, err := r.Params()
		if err != nil {
			a.Err = err
		}
		a.Summary = summarize(r.Name, params)
		a.Preview = preview(r)

		activities = append(activities, a)
	}
	return activities
}

// Key derives a stable key from the record ID, or from the name and position
// when the ID is empty.
func Key(r message.ToolCallRecord, index int) string {
	name := r.ID
	if name == "" {
		name = fmt.Sprintf("%s#%d", r.Name, index)
	}
	return uuid.NewSHA1(keySpace, []byte(name)).String()
}

func summarize(name string, params map[string]any) string {
	if name == "" {
		name = "tool"
	}
	if len(params) == 0 {
		return name + "()"
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(params[k]))
	}
	args := runewidth.Truncate(strings.Join(parts, ", "), summaryWidth, ellipsis)
	return name + "(" + args + ")"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return firstLine(val)
	case nil:
		return "null"
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}

// preview shows the error for failed calls and the result otherwise.
func preview(r message.ToolCallRecord) string {
	text := r.Result
	if r.Status == message.ToolError || (r.Error != "" && text == "") {
		text = r.Error
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return runewidth.Truncate(firstLine(text), previewWidth, ellipsis)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " " + ellipsis
	}
	return s
}
