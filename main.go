package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	goopenai "github.com/sashabaranov/go-openai"
	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"

	"jubo/internal/archive"
	"jubo/internal/backup"
	"jubo/internal/calendar"
	"jubo/internal/commontypes"
	"jubo/internal/feedback"
	"jubo/internal/notion"
	"jubo/internal/openai"
	"jubo/internal/report"
	slackutil "jubo/internal/slack"
)

type Config struct {
	SlackToken  string
	ChannelID   string
	OpenAIToken string

	FeedbackWorkerURL  string
	NotionToken        string
	NotionParentPageID string

	BackupDir string
	GuidePath string
	ForceType string

	DB archive.DBConfig

	// Email configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
	EmailTo      []string
}

func loadConfig(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file, using process environment")
	}

	var emailTo []string
	if s := os.Getenv("EMAIL_TO"); s != "" {
		emailTo = strings.Split(s, ",")
	}

	config := &Config{
		SlackToken:  os.Getenv("SLACK_BOT_TOKEN"),
		ChannelID:   os.Getenv("SLACK_CHANNEL_ID"),
		OpenAIToken: os.Getenv("OPENAI_API_KEY"),

		FeedbackWorkerURL:  os.Getenv("FEEDBACK_WORKER_URL"),
		NotionToken:        os.Getenv("NOTION_TOKEN"),
		NotionParentPageID: os.Getenv("NOTION_PARENT_PAGE_ID"),

		BackupDir: os.Getenv("BACKUP_DIR"),
		GuidePath: os.Getenv("GUIDE_PATH"),
		ForceType: os.Getenv("FORCE_TYPE"),

		DB: archive.DBConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
		},

		// Email configuration
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     os.Getenv("SMTP_PORT"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    os.Getenv("EMAIL_FROM"),
		EmailTo:      emailTo,
	}

	if config.BackupDir == "" {
		config.BackupDir = "backups"
	}
	if config.GuidePath == "" {
		config.GuidePath = "report-guide.md"
	}

	required := map[string]string{
		"SLACK_BOT_TOKEN":  config.SlackToken,
		"SLACK_CHANNEL_ID": config.ChannelID,
		"OPENAI_API_KEY":   config.OpenAIToken,
	}
	for k, v := range required {
		if v == "" {
			return nil, fmt.Errorf("%s is required", k)
		}
	}

	return config, nil
}

func loadGuide(path string, logger *zap.Logger) string {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Guide file not found, generating without guide",
			zap.String("path", path))
		return ""
	}
	return string(data)
}

func markdownToHTML(md string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	return string(markdown.Render(doc, renderer))
}

func sendEmail(config *Config, subject, body string, logger *zap.Logger) error {
	if len(config.EmailTo) == 0 || config.SMTPHost == "" || config.SMTPPort == "" {
		logger.Info("Email not configured, skipping")
		return nil
	}

	auth := smtp.PlainAuth("", config.SMTPUser, config.SMTPPassword, config.SMTPHost)

	styledHTML := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
	body {
		font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
		line-height: 1.6;
		color: #333;
		max-width: 800px;
		margin: 0 auto;
		padding: 20px;
	}
	h1, h2, h3 { color: #2c3e50; }
	a { color: #3498db; text-decoration: none; }
</style>
</head>
<body>
%s
</body>
</html>`, markdownToHTML(body))

	headers := map[string]string{
		"From":         config.EmailFrom,
		"To":           strings.Join(config.EmailTo, ", "),
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	var message strings.Builder
	for key, value := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", key, value))
	}
	message.WriteString("\r\n")
	message.WriteString(styledHTML)

	err := smtp.SendMail(
		fmt.Sprintf("%s:%s", config.SMTPHost, config.SMTPPort),
		auth,
		config.EmailFrom,
		config.EmailTo,
		[]byte(message.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("Email sent", zap.Strings("recipients", config.EmailTo))
	return nil
}

func buildBackup(config *Config, w report.Window,
	fetched map[string]commontypes.Message, inWindow, late []commontypes.Message) commontypes.Backup {

	seenTs := make([]string, 0, len(fetched))
	for ts := range fetched {
		seenTs = append(seenTs, ts)
	}
	sort.Strings(seenTs)

	return commontypes.Backup{
		Meta: commontypes.BackupMeta{
			Period:      fmt.Sprintf("%s ~ %s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02")),
			Start:       w.Start.Format(time.RFC3339),
			End:         w.End.Format(time.RFC3339),
			GeneratedAt: time.Now().In(report.KST).Format(time.RFC3339),
			ChannelID:   config.ChannelID,
			Stats: commontypes.BackupStats{
				WeeklyMessages:    len(inWindow),
				LateThreadReplies: len(late),
				TotalSeen:         len(seenTs),
			},
		},
		WeeklyMessages:    inWindow,
		LateThreadReplies: late,
		SeenTs:            seenTs,
	}
}

func main() {
	typeFlag := flag.String("type", "", "Force report type: daily or weekly (default: weekday rule)")
	dateFlag := flag.String("date", "", "Run as if today were this date (YYYY-MM-DD)")
	dryRun := flag.Bool("dry-run", false, "Generate the report but do not post or archive it")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	config, err := loadConfig(logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	today := time.Now().In(report.KST)
	if *dateFlag != "" {
		today, err = time.ParseInLocation("2006-01-02", *dateFlag, report.KST)
		if err != nil {
			logger.Fatal("Invalid -date value", zap.String("date", *dateFlag), zap.Error(err))
		}
	}
	logger.Info("Starting run",
		zap.String("today", today.Format("2006-01-02")),
		zap.String("weekday", today.Weekday().String()))

	// Business-calendar gate: skip weekends and holidays.
	isHol, holName, err := calendar.IsHoliday(today)
	if err != nil {
		logger.Fatal("Holiday table cannot answer for this date", zap.Error(err))
	}
	if isHol {
		logger.Info("Holiday, skipping run", zap.String("holiday", holName))
		return
	}
	biz, err := calendar.IsBusinessDay(today)
	if err != nil {
		logger.Fatal("Holiday table cannot answer for this date", zap.Error(err))
	}
	if !biz {
		logger.Info("Not a business day, skipping run")
		return
	}

	forceType := config.ForceType
	if *typeFlag != "" {
		forceType = *typeFlag
	}
	window, dateLabel, kind := report.PeriodFor(today, forceType)
	logger.Info("Reporting period",
		zap.String("type", kind),
		zap.String("label", dateLabel),
		zap.Time("start", window.Start),
		zap.Time("end", window.End))

	ctx := context.Background()

	// 1. Accumulated feedback (best effort).
	feedbackText := feedback.FormatForPrompt(feedback.Fetch(ctx, config.FeedbackWorkerURL, logger))

	// 2. Channel history: widened parent window plus thread replies.
	sc := slackutil.New(slackapi.New(config.SlackToken), config.ChannelID, logger)
	sc.ResolveSelf()
	fetched, err := sc.FetchWindow(window, true)
	if err != nil {
		logger.Fatal("History fetch failed, aborting run", zap.Error(err))
	}
	if len(fetched) == 0 {
		logger.Info("No messages found, skipping report")
		return
	}

	// 3. Reconcile against the previous period's seen-set.
	store := backup.NewStore(config.BackupDir, logger)
	prevSeen := store.LoadLatestSeen()
	inWindow, late := report.Reconcile(fetched, window, prevSeen)
	logger.Info("Reconciled messages",
		zap.Int("in_window", len(inWindow)),
		zap.Int("late_thread_replies", len(late)),
		zap.Int("previously_seen", len(prevSeen)))

	periodKey := window.Start.Format("2006-01-02")
	bkp := buildBackup(config, window, fetched, inWindow, late)

	// 4. Render the corpus.
	corpus := report.Render(inWindow)
	if lateText := report.Render(late); lateText != "" {
		corpus += "\n\n[지난 기간 스레드에 늦게 달린 답글]\n" + lateText
	}
	if strings.TrimSpace(corpus) == "" {
		logger.Info("Nothing to report for this period")
		if path, err := store.Save(periodKey, bkp); err != nil {
			logger.Error("Failed to save backup", zap.Error(err))
		} else {
			logger.Info("Backup saved", zap.String("path", path))
		}
		return
	}

	// 5. Generate the report.
	guide := loadGuide(config.GuidePath, logger)
	summary, err := openai.GenerateReport(goopenai.NewClient(config.OpenAIToken), openai.Params{
		Corpus:       corpus,
		Kind:         kind,
		DateLabel:    dateLabel,
		Guide:        guide,
		FeedbackText: feedbackText,
	}, logger)
	if err != nil {
		logger.Fatal("Report generation failed", zap.Error(err))
	}
	mrkdwnReport := report.ToMrkdwn(summary)

	if *dryRun {
		fmt.Println(mrkdwnReport)
		logger.Info("Dry run, not posting or archiving")
		return
	}

	// 6. Deliver and archive. None of these block the backup write.
	if _, err := sc.PostReport(mrkdwnReport, dateLabel, kind); err != nil {
		logger.Error("Failed to post report to Slack", zap.Error(err))
	}

	if config.NotionToken != "" && config.NotionParentPageID != "" {
		nc := notion.NewClient(config.NotionToken, config.NotionParentPageID, logger)
		title := fmt.Sprintf("일간 리포트 %s", dateLabel)
		if kind == report.KindWeekly {
			title = fmt.Sprintf("주간 리포트 %s", dateLabel)
		}
		if err := nc.CreatePage(ctx, title, mrkdwnReport); err != nil {
			logger.Error("Failed to archive report to Notion", zap.Error(err))
		}
	}

	if config.DB.Configured() {
		if db, err := archive.Connect(config.DB); err != nil {
			logger.Error("Failed to connect to archive database", zap.Error(err))
		} else {
			defer db.Close()
			if err := archive.SaveReport(db, periodKey, kind, dateLabel, mrkdwnReport, bkp.Meta.Stats, logger); err != nil {
				logger.Error("Failed to archive report to database", zap.Error(err))
			}
		}
	}

	if len(config.EmailTo) > 0 {
		subject := fmt.Sprintf("Slack Channel Report - %s", dateLabel)
		if err := sendEmail(config, subject, summary, logger); err != nil {
			logger.Error("Failed to send email", zap.Error(err))
		}
	}

	// 7. Persist the seen-set for the next period.
	if path, err := store.Save(periodKey, bkp); err != nil {
		logger.Error("Failed to save backup", zap.Error(err))
	} else {
		logger.Info("Backup saved", zap.String("path", path))
	}

	logger.Info("Run complete",
		zap.String("type", kind),
		zap.Int("weekly_messages", len(inWindow)),
		zap.Int("late_thread_replies", len(late)))
}
