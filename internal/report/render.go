package report

import (
	"fmt"
	"strings"

	"jubo/internal/commontypes"
)

// Render flattens messages into the corpus text sent to the summarizer.
// Messages with an empty trimmed body are skipped. Input order is preserved;
// callers pass messages already sorted by ts.
func Render(msgs []commontypes.Message) string {
	var lines []string
	for _, m := range msgs {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		t, err := ParseTs(m.Ts)
		if err != nil {
			continue
		}
		var prefix string
		if m.IsThreadReply {
			prefix = "[reply] "
		}
		var author string
		if m.UserName != "" {
			author = m.UserName + ": "
		}
		lines = append(lines, fmt.Sprintf("[%s] %s%s%s", t.Format("01/02 15:04"), prefix, author, text))
	}
	return strings.Join(lines, "\n")
}
