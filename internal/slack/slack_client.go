// Package slack wraps the Slack Web API for the report pipeline: windowed
// history fetch with thread expansion, user name resolution and posting.
package slack

import (
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"jubo/internal/commontypes"
	"jubo/internal/report"
)

// How far before the window end the top-level fetch reaches. Thread parents
// older than the reporting window must still be discovered so their late
// replies can be captured.
const parentLookbackDays = 30

const pageLimit = 200

type api interface {
	GetConversationHistory(params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationReplies(params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
	GetUserInfo(user string) (*slack.User, error)
	AuthTest() (*slack.AuthTestResponse, error)
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// Client is a run-scoped wrapper around one channel of one workspace.
type Client struct {
	api       api
	channelID string
	users     *UserCache
	selfBotID string
	logger    *zap.Logger

	// Pause between paginated calls. Slack Tier 3 allows ~50/min.
	pageDelay time.Duration
}

func New(sc *slack.Client, channelID string, logger *zap.Logger) *Client {
	return newClient(sc, channelID, logger)
}

func newClient(a api, channelID string, logger *zap.Logger) *Client {
	return &Client{
		api:       a,
		channelID: channelID,
		users:     NewUserCache(a, logger),
		logger:    logger,
		pageDelay: 1200 * time.Millisecond,
	}
}

// ResolveSelf looks up our own bot identity once, so the pipeline can drop
// previously posted reports from the corpus. Failure is non-fatal: nothing
// gets tagged and the reconciler sees the bot messages as ordinary bot posts.
func (c *Client) ResolveSelf() {
	resp, err := c.api.AuthTest()
	if err != nil {
		c.logger.Warn("auth.test failed, cannot tag own messages", zap.Error(err))
		return
	}
	c.selfBotID = resp.BotID
	if c.selfBotID == "" {
		c.selfBotID = resp.UserID
	}
	c.logger.Debug("Resolved self identity", zap.String("bot_id", c.selfBotID))
}

// FetchWindow retrieves every top-level message in a widened interval ending
// at the window's end, plus, when expandThreads is set, the full reply set of
// every parent with replies. The result maps ts to enriched message, so it is
// deduplicated by construction.
//
// A failure of the top-level fetch is fatal for the run: a partial parent set
// cannot be reconciled safely. A failed thread fetch only loses that thread's
// replies and is logged.
func (c *Client) FetchWindow(w report.Window, expandThreads bool) (map[string]commontypes.Message, error) {
	fetchStart := w.End.AddDate(0, 0, -parentLookbackDays)
	oldest := slackTs(fetchStart)
	latest := slackTs(w.End)

	c.logger.Info("Fetching channel history",
		zap.String("channel_id", c.channelID),
		zap.String("oldest", oldest),
		zap.String("latest", latest))

	var parents []slack.Message
	cursor := ""
	for {
		history, err := c.api.GetConversationHistory(&slack.GetConversationHistoryParameters{
			ChannelID: c.channelID,
			Oldest:    oldest,
			Latest:    latest,
			Limit:     pageLimit,
			Inclusive: true,
			Cursor:    cursor,
		})
		if err != nil {
			if strings.Contains(err.Error(), "rate limit") || strings.Contains(err.Error(), "ratelimited") {
				c.logger.Warn("Rate limited by Slack API, pausing")
				time.Sleep(30 * time.Second)
				continue
			}
			return nil, fmt.Errorf("fetching conversation history: %w", err)
		}
		parents = append(parents, history.Messages...)

		if !history.HasMore || history.ResponseMetaData.NextCursor == "" {
			break
		}
		cursor = history.ResponseMetaData.NextCursor
		time.Sleep(c.pageDelay)
	}

	c.logger.Info("Parents fetched", zap.Int("count", len(parents)))

	all := make(map[string]commontypes.Message, len(parents))
	threadsFetched := 0
	for _, msg := range parents {
		all[msg.Timestamp] = c.enrich(msg)

		if !expandThreads || msg.ReplyCount == 0 {
			continue
		}
		replies, err := c.fetchThread(msg.Timestamp)
		if err != nil {
			c.logger.Warn("Thread fetch failed, replies will be missing",
				zap.String("parent_ts", msg.Timestamp),
				zap.Error(err))
			continue
		}
		for _, reply := range replies {
			all[reply.Timestamp] = c.enrich(reply)
		}
		threadsFetched++
	}

	c.logger.Info("History fetch complete",
		zap.Int("parents", len(parents)),
		zap.Int("threads_expanded", threadsFetched),
		zap.Int("total_messages", len(all)))
	return all, nil
}

// fetchThread returns the complete reply list of one thread, parent included.
// Unlike the top-level fetch this is not bounded by the window: a late reply
// on a months-old parent is exactly what the reconciler wants to see.
func (c *Client) fetchThread(parentTs string) ([]slack.Message, error) {
	var msgs []slack.Message
	cursor := ""
	for {
		page, hasMore, nextCursor, err := c.api.GetConversationReplies(&slack.GetConversationRepliesParameters{
			ChannelID: c.channelID,
			Timestamp: parentTs,
			Limit:     pageLimit,
			Cursor:    cursor,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, page...)
		if !hasMore || nextCursor == "" {
			return msgs, nil
		}
		cursor = nextCursor
		time.Sleep(c.pageDelay)
	}
}

// enrich converts a raw API message into the record the rest of the pipeline
// works with.
func (c *Client) enrich(msg slack.Message) commontypes.Message {
	m := commontypes.Message{
		Ts:   msg.Timestamp,
		Text: msg.Text,
	}
	if t, err := report.ParseTs(msg.Timestamp); err == nil {
		m.Datetime = t.Format("2006-01-02 15:04:05")
		m.Date = t.Format("2006-01-02")
	}
	if msg.ThreadTimestamp != "" && msg.ThreadTimestamp != msg.Timestamp {
		m.IsThreadReply = true
		m.ParentTs = msg.ThreadTimestamp
	}

	switch {
	case msg.User != "":
		m.UserID = msg.User
		m.UserName = c.users.Resolve(msg.User)
	case msg.BotID != "":
		m.IsBot = true
		m.UserName = msg.Username
		if m.UserName == "" {
			m.UserName = "bot:" + msg.BotID
		}
	}
	if c.selfBotID != "" && msg.BotID == c.selfBotID {
		m.IsSelfBot = true
	}

	if len(msg.Files) > 0 {
		m.HasFiles = true
		for _, f := range msg.Files {
			m.FileNames = append(m.FileNames, f.Name)
		}
	}
	if len(msg.Attachments) > 0 {
		m.HasAttachments = true
	}
	for _, r := range msg.Reactions {
		m.Reactions = append(m.Reactions, commontypes.Reaction{Name: r.Name, Count: r.Count})
	}
	return m
}

// PostReport posts the finished report to the channel and hangs a feedback
// button off it as a thread reply. The button post is best effort.
func (c *Client) PostReport(text, dateLabel, kind string) (string, error) {
	typeLabel := "일간 리포트"
	if kind == report.KindWeekly {
		typeLabel = "주간 리포트"
	}
	full := fmt.Sprintf("*%s*  |  %s\n───\n\n%s", typeLabel, dateLabel, text)

	_, ts, err := c.api.PostMessage(c.channelID, slack.MsgOptionText(full, false))
	if err != nil {
		return "", fmt.Errorf("posting report: %w", err)
	}
	c.logger.Info("Report posted", zap.String("ts", ts))

	button := slack.NewButtonBlockElement(
		"feedback_button", "",
		slack.NewTextBlockObject(slack.PlainTextType, "💬 피드백 하기", true, false),
	).WithStyle(slack.StylePrimary)

	_, _, err = c.api.PostMessage(c.channelID,
		slack.MsgOptionTS(ts),
		slack.MsgOptionText("피드백을 남겨주세요", false),
		slack.MsgOptionBlocks(slack.NewActionBlock("", button)),
	)
	if err != nil {
		c.logger.Warn("Feedback button post failed", zap.Error(err))
	}
	return ts, nil
}

func slackTs(t time.Time) string {
	return fmt.Sprintf("%.6f", float64(t.UnixNano())/1e9)
}
