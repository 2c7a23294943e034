// Package feedback pulls accumulated team feedback from the worker API and
// formats it for the generation prompt.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"jubo/internal/commontypes"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Fetch returns all accumulated feedback entries. Any failure degrades to an
// empty list: a report without feedback bias is still a valid report.
func Fetch(ctx context.Context, baseURL string, logger *zap.Logger) []commontypes.FeedbackEntry {
	if baseURL == "" {
		logger.Warn("Feedback worker URL not set, skipping feedback")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/feedback", nil)
	if err != nil {
		logger.Warn("Building feedback request failed", zap.Error(err))
		return nil
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		logger.Warn("Feedback fetch failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("Feedback fetch returned non-OK status", zap.Int("status", resp.StatusCode))
		return nil
	}

	var entries []commontypes.FeedbackEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		logger.Warn("Decoding feedback failed", zap.Error(err))
		return nil
	}
	logger.Info("Accumulated feedback loaded", zap.Int("entries", len(entries)))
	return entries
}

var categoryLabels = map[string]string{
	"correction":     "사실 오류 수정",
	"categorization": "분류 기준 변경",
	"format":         "포맷/형식 변경",
	"general":        "기타 의견",
}

// FormatForPrompt renders feedback entries as one line each, oldest first in
// input order.
func FormatForPrompt(entries []commontypes.FeedbackEntry) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		label, ok := categoryLabels[e.Category]
		if !ok {
			label = e.Category
		}
		lines = append(lines, fmt.Sprintf("[%s] [%s] %s", e.Date, label, e.Text))
	}
	return strings.Join(lines, "\n")
}
