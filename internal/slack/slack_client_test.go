package slack

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"jubo/internal/report"
)

type fakeAPI struct {
	historyPages []*slack.GetConversationHistoryResponse
	historyCalls int
	historyErr   error

	replies  map[string][]slack.Message
	replyErr map[string]error

	users         map[string]*slack.User
	userInfoCalls int

	posted [][]slack.MsgOption
}

func (f *fakeAPI) GetConversationHistory(params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if f.historyCalls >= len(f.historyPages) {
		return &slack.GetConversationHistoryResponse{}, nil
	}
	page := f.historyPages[f.historyCalls]
	f.historyCalls++
	return page, nil
}

func (f *fakeAPI) GetConversationReplies(params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	if err := f.replyErr[params.Timestamp]; err != nil {
		return nil, false, "", err
	}
	return f.replies[params.Timestamp], false, "", nil
}

func (f *fakeAPI) GetUserInfo(user string) (*slack.User, error) {
	f.userInfoCalls++
	u, ok := f.users[user]
	if !ok {
		return nil, errors.New("user_not_found")
	}
	return u, nil
}

func (f *fakeAPI) AuthTest() (*slack.AuthTestResponse, error) {
	return &slack.AuthTestResponse{BotID: "B_SELF"}, nil
}

func (f *fakeAPI) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	f.posted = append(f.posted, options)
	return channelID, "1700000000.000100", nil
}

func newMsg(ts, text string, replyCount int) slack.Message {
	m := slack.Message{}
	m.Timestamp = ts
	m.Text = text
	m.ReplyCount = replyCount
	return m
}

func newReply(ts, parentTs, text string) slack.Message {
	m := newMsg(ts, text, 0)
	m.ThreadTimestamp = parentTs
	return m
}

func testWindow() report.Window {
	return report.Window{
		Start: time.Unix(1700000000, 0).In(report.KST),
		End:   time.Unix(1700600000, 0).In(report.KST),
	}
}

func newTestClient(f *fakeAPI) *Client {
	c := newClient(f, "C1", zap.NewNop())
	c.pageDelay = 0
	return c
}

func page(hasMore bool, cursor string, msgs ...slack.Message) *slack.GetConversationHistoryResponse {
	resp := &slack.GetConversationHistoryResponse{HasMore: hasMore, Messages: msgs}
	resp.ResponseMetaData.NextCursor = cursor
	return resp
}

func TestFetchWindowPagination(t *testing.T) {
	f := &fakeAPI{
		historyPages: []*slack.GetConversationHistoryResponse{
			page(true, "cursor2",
				newMsg("1700000100.000000", "a", 0),
				newMsg("1700000200.000000", "b", 0)),
			page(false, "",
				newMsg("1700000200.000000", "b", 0), // repeated across pages
				newMsg("1700000300.000000", "c", 0)),
		},
	}
	c := newTestClient(f)

	got, err := c.FetchWindow(testWindow(), false)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if f.historyCalls != 2 {
		t.Errorf("history calls = %d, want 2 (stop when no cursor)", f.historyCalls)
	}
	if len(got) != 3 {
		t.Errorf("got %d messages, want 3 deduplicated", len(got))
	}
	for _, ts := range []string{"1700000100.000000", "1700000200.000000", "1700000300.000000"} {
		if _, ok := got[ts]; !ok {
			t.Errorf("missing ts %s", ts)
		}
	}
}

func TestFetchWindowThreadExpansion(t *testing.T) {
	parent := newMsg("1700000100.000000", "parent", 2)
	f := &fakeAPI{
		historyPages: []*slack.GetConversationHistoryResponse{page(false, "", parent)},
		replies: map[string][]slack.Message{
			// Slack returns the parent as the first reply element.
			"1700000100.000000": {
				parent,
				newReply("1700000150.000000", "1700000100.000000", "r1"),
				newReply("1700000160.000000", "1700000100.000000", "r2"),
			},
		},
	}
	c := newTestClient(f)

	got, err := c.FetchWindow(testWindow(), true)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3 (parent deduplicated)", len(got))
	}
	if got["1700000100.000000"].IsThreadReply {
		t.Error("parent marked as thread reply")
	}
	r1 := got["1700000150.000000"]
	if !r1.IsThreadReply || r1.ParentTs != "1700000100.000000" {
		t.Errorf("reply not enriched: %+v", r1)
	}
}

func TestFetchWindowThreadFailureDegraded(t *testing.T) {
	f := &fakeAPI{
		historyPages: []*slack.GetConversationHistoryResponse{page(false, "",
			newMsg("1700000100.000000", "parent", 3))},
		replyErr: map[string]error{"1700000100.000000": errors.New("thread_not_found")},
	}
	c := newTestClient(f)

	got, err := c.FetchWindow(testWindow(), true)
	if err != nil {
		t.Fatalf("thread failure must not abort the run: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d messages, want just the parent", len(got))
	}
}

func TestFetchWindowPrimaryFailureFatal(t *testing.T) {
	f := &fakeAPI{historyErr: errors.New("channel_not_found")}
	c := newTestClient(f)
	if _, err := c.FetchWindow(testWindow(), true); err == nil {
		t.Fatal("expected fatal error when the primary fetch fails")
	}
}

func TestEnrichSelfBot(t *testing.T) {
	f := &fakeAPI{}
	c := newTestClient(f)
	c.ResolveSelf()

	m := newMsg("1700000100.000000", "report", 0)
	m.BotID = "B_SELF"
	if got := c.enrich(m); !got.IsSelfBot || !got.IsBot {
		t.Errorf("self-bot message not tagged: %+v", got)
	}

	other := newMsg("1700000200.000000", "other bot", 0)
	other.BotID = "B_OTHER"
	if got := c.enrich(other); got.IsSelfBot {
		t.Errorf("foreign bot tagged as self: %+v", got)
	}
}

func TestUserCacheMemoizes(t *testing.T) {
	f := &fakeAPI{users: map[string]*slack.User{
		"U1": {Profile: slack.UserProfile{DisplayName: "june"}},
	}}
	uc := NewUserCache(f, zap.NewNop())

	if got := uc.Resolve("U1"); got != "june" {
		t.Errorf("Resolve = %q, want june", got)
	}
	uc.Resolve("U1")
	if f.userInfoCalls != 1 {
		t.Errorf("users.info called %d times, want 1", f.userInfoCalls)
	}

	// Unknown user falls back to the raw id, also cached.
	if got := uc.Resolve("U404"); got != "U404" {
		t.Errorf("Resolve(U404) = %q", got)
	}
	uc.Resolve("U404")
	if f.userInfoCalls != 2 {
		t.Errorf("failed lookup not cached, %d calls", f.userInfoCalls)
	}
}

func TestPostReport(t *testing.T) {
	f := &fakeAPI{}
	c := newTestClient(f)

	ts, err := c.PostReport("*요약*", "2026-02-02", report.KindDaily)
	if err != nil {
		t.Fatalf("PostReport: %v", err)
	}
	if ts == "" {
		t.Error("expected report ts")
	}
	if len(f.posted) != 2 {
		t.Fatalf("posted %d messages, want report + feedback button", len(f.posted))
	}
	if !strings.Contains(ts, ".") {
		t.Errorf("unexpected ts %q", ts)
	}
}
