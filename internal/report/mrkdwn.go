package report

import (
	"regexp"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`^#{1,6}\s+`)
	dividerRe = regexp.MustCompile(`^-{3,}$`)
)

// ToMrkdwn normalizes model output from standard Markdown to Slack mrkdwn:
// headings are stripped, **bold** becomes *bold*, horizontal rules become a
// short box-drawing divider.
func ToMrkdwn(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = headingRe.ReplaceAllString(line, "")
		line = strings.ReplaceAll(line, "**", "*")
		if dividerRe.MatchString(strings.TrimSpace(line)) {
			line = "───"
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
