// Package notion archives finished reports as pages in a Notion workspace.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notion caps a rich text block at 2000 characters; the caller enforces the
// boundary by splitting the body into paragraph blocks.
const blockCharLimit = 2000

const apiVersion = "2022-06-28"

type Client struct {
	httpc        *http.Client
	baseURL      string
	token        string
	parentPageID string
	logger       *zap.Logger
}

func NewClient(token, parentPageID string, logger *zap.Logger) *Client {
	return &Client{
		httpc:        &http.Client{Timeout: 30 * time.Second},
		baseURL:      "https://api.notion.com",
		token:        token,
		parentPageID: parentPageID,
		logger:       logger,
	}
}

type richText struct {
	Type string `json:"type"`
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

type paragraphBlock struct {
	Object    string `json:"object"`
	Type      string `json:"type"`
	Paragraph struct {
		RichText []richText `json:"rich_text"`
	} `json:"paragraph"`
}

type createPageRequest struct {
	Parent struct {
		PageID string `json:"page_id"`
	} `json:"parent"`
	Properties struct {
		Title struct {
			Title []richText `json:"title"`
		} `json:"title"`
	} `json:"properties"`
	Children []paragraphBlock `json:"children"`
}

// CreatePage writes one page holding the report body, chunked into
// length-limited paragraph blocks.
func (c *Client) CreatePage(ctx context.Context, title, body string) error {
	var req createPageRequest
	req.Parent.PageID = c.parentPageID
	req.Properties.Title.Title = []richText{newRichText(title)}
	for _, chunk := range chunkBlocks(body, blockCharLimit) {
		var p paragraphBlock
		p.Object = "block"
		p.Type = "paragraph"
		p.Paragraph.RichText = []richText{newRichText(chunk)}
		req.Children = append(req.Children, p)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding page request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/pages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building page request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Notion-Version", apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("creating page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notion returned %d: %s", resp.StatusCode, msg)
	}
	c.logger.Info("Report archived to Notion",
		zap.String("title", title),
		zap.Int("blocks", len(req.Children)))
	return nil
}

func newRichText(content string) richText {
	rt := richText{Type: "text"}
	rt.Text.Content = content
	return rt
}

// chunkBlocks splits text into chunks of at most limit characters (runes,
// not bytes), breaking on line boundaries where possible. A single line
// longer than the limit is hard-split.
func chunkBlocks(text string, limit int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		r := []rune(line)
		for len(r) > limit {
			flush()
			chunks = append(chunks, string(r[:limit]))
			r = r[limit:]
		}
		// +1 for the joining newline
		if curLen > 0 && curLen+1+len(r) > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(string(r))
		curLen += len(r)
	}
	flush()
	return chunks
}
