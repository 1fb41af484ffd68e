package transport

import (
	"fmt"
	"strings"

	"agenda-notifier/pkg/agenda"
)

// headlines for each reminder category, in the renderer's voice.
var triggerHeadlines = map[agenda.Trigger]string{
	agenda.TriggerNextWeek:  "Due next week",
	agenda.TriggerThisWeek:  "Due this week",
	agenda.TriggerTwoDays:   "Due in 2 days",
	agenda.TriggerTomorrow:  "Due tomorrow",
	agenda.TriggerToday:     "Due today",
	agenda.TriggerThirtyMin: "30 minutes left",
	agenda.TriggerEnded:     "Deadline passed",
}

// Headline returns the human heading for a trigger.
func Headline(t agenda.Trigger) string {
	if h, ok := triggerHeadlines[t]; ok {
		return h
	}
	return string(t)
}

func digestSubject(batch *agenda.Batch) string {
	items := 0
	for _, g := range batch.Groups {
		items += len(g.Items)
	}
	if items == 1 {
		return "Deadline reminder"
	}
	return fmt.Sprintf("%d deadline reminders", items)
}

// formatDigest renders a reminder batch as a standalone HTML document for
// the Gmail provider.
func formatDigest(batch *agenda.Batch) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; background: #fff; }\n")
	b.WriteString(".group { margin-bottom: 30px; padding-bottom: 20px; border-bottom: 2px solid #2e86c1; }\n")
	b.WriteString(".group:last-of-type { border-bottom: none; padding-bottom: 0; margin-bottom: 0; }\n")
	b.WriteString(".headline { color: #2e86c1; font-weight: 600; font-size: 1.2em; margin-bottom: 12px; }\n")
	b.WriteString(".activity { margin: 10px 0; }\n")
	b.WriteString(".name { font-weight: 600; }\n")
	b.WriteString(".subject { color: #7f8c8d; }\n")
	b.WriteString(".due { color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString(".countdown { color: #c0392b; font-size: 0.9em; }\n")
	b.WriteString("@media (prefers-color-scheme: dark) {\n")
	b.WriteString("body { background: #1a1a1a; color: #e0e0e0; }\n")
	b.WriteString(".headline { color: #5dade2; }\n")
	b.WriteString(".subject { color: #a0a0a0; }\n")
	b.WriteString(".due { color: #a0a0a0; }\n")
	b.WriteString(".countdown { color: #e74c3c; }\n")
	b.WriteString("}\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	for _, group := range batch.Groups {
		b.WriteString("<div class=\"group\">\n")
		b.WriteString(fmt.Sprintf("<div class=\"headline\">%s</div>\n", escapeHTML(Headline(group.Trigger))))
		for _, item := range group.Items {
			b.WriteString("<div class=\"activity\">\n")
			b.WriteString(fmt.Sprintf("<span class=\"name\">%s</span>\n", escapeHTML(item.Name)))
			b.WriteString(fmt.Sprintf("<span class=\"subject\"> &bull; %s</span><br>\n", escapeHTML(item.Subject)))
			b.WriteString(fmt.Sprintf("<span class=\"due\">%s</span>\n", escapeHTML(item.DueLabel)))
			b.WriteString(fmt.Sprintf("<span class=\"countdown\"> &bull; %s</span>\n", escapeHTML(item.Countdown)))
			b.WriteString("</div>\n")
		}
		b.WriteString("</div>\n")
	}

	b.WriteString("</body>\n</html>")

	return b.String()
}

// escapeHTML escapes HTML special characters. Activity names and subjects
// are user input and must not reach the digest unescaped.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
