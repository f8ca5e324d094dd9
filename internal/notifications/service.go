package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pressbeat/press-tracker/internal/config"
	"github.com/pressbeat/press-tracker/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers snapshot digests via the configured channels. It only
// reads the snapshot; it never feeds anything back into the pipeline.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendDigest sends a snapshot digest via configured notification channels
func (s *Service) SendDigest(snapshot *models.Snapshot) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(snapshot); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(snapshot); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(snapshot *models.Snapshot) error {
	message := s.buildTeamsMessage(snapshot)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(snapshot *models.Snapshot) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   "Press Tracker Digest",
		Text: fmt.Sprintf("Found %d mentions between %s and %s",
			snapshot.TotalMentions(),
			snapshot.Window.Start.Format("Jan 2"),
			snapshot.Window.End.Format("Jan 2")),
	}

	facts := []TeamsFact{
		{Name: "Total Mentions", Value: fmt.Sprintf("%d", snapshot.TotalMentions())},
		{Name: "Generated", Value: snapshot.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	if snapshot.TopBrand != "" {
		facts = append(facts, TeamsFact{Name: "Top Share of Voice", Value: snapshot.TopBrand})
	}
	for _, digest := range snapshot.Digests {
		share := snapshot.SOV[digest.Brand]
		facts = append(facts, TeamsFact{
			Name:  digest.Brand,
			Value: fmt.Sprintf("%d mentions (%.1f%%)", share.Count, share.Percentage),
		})
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Share of Voice",
		Facts:         facts,
		Markdown:      true,
	})

	for _, digest := range snapshot.Digests {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: digest.Brand,
			ActivityText:  digest.Text,
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(snapshot *models.Snapshot) error {
	subject := fmt.Sprintf("Press Tracker Digest - %s (%d mentions)",
		snapshot.Window.End.Format("Jan 2, 2006"), snapshot.TotalMentions())

	htmlBody, err := s.buildEmailHTML(snapshot)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	textBody := s.buildEmailText(snapshot)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailHTML(snapshot *models.Snapshot) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Press Tracker Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #2b5797; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .digest { border-left: 4px solid #2b5797; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .digest-brand { font-weight: bold; margin-bottom: 5px; }
        .mention { padding: 6px 10px; margin: 5px 0; background-color: #fafafa; }
        .mention-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Press Tracker Digest</h1>
        <p>Window {{.Window.Start.Format "Jan 2"}} &ndash; {{.Window.End.Format "Jan 2, 2006"}}, generated {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Share of Voice</h2>
        <p><strong>Total Mentions:</strong> {{.TotalMentions}}</p>
        {{if .TopBrand}}<p><strong>Top Share of Voice:</strong> {{.TopBrand}}</p>{{end}}
        {{range .Digests}}
            {{$share := index $.SOV .Brand}}
            <p><strong>{{.Brand}}:</strong> {{$share.Count}} mentions ({{printf "%.1f" $share.Percentage}}%)</p>
        {{end}}
    </div>

    <h2>Digests</h2>
    {{range .Digests}}
    <div class="digest">
        <div class="digest-brand">{{.Brand}}</div>
        <div>{{.Text}}</div>
    </div>
    {{end}}

    {{if .Mentions}}
    <h2>Recent Mentions</h2>
    {{range $index, $mention := .Mentions}}
        {{if lt $index 10}}
        <div class="mention">
            <a href="{{$mention.URL}}" target="_blank">{{$mention.Title}}</a>
            <div class="mention-meta">{{$mention.Brand}}{{if $mention.Source}} &middot; {{$mention.Source}}{{end}}</div>
        </div>
        {{end}}
    {{end}}
    {{end}}
</body>
</html>`

	t, err := template.New("digest").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, snapshot); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(snapshot *models.Snapshot) string {
	var sb strings.Builder

	sb.WriteString("Press Tracker Digest\n")
	sb.WriteString(fmt.Sprintf("Window: %s - %s\n",
		snapshot.Window.Start.Format("2006-01-02"), snapshot.Window.End.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Total mentions: %d\n", snapshot.TotalMentions()))
	if snapshot.TopBrand != "" {
		sb.WriteString(fmt.Sprintf("Top share of voice: %s\n", snapshot.TopBrand))
	}
	sb.WriteString("\n")

	for _, digest := range snapshot.Digests {
		share := snapshot.SOV[digest.Brand]
		sb.WriteString(fmt.Sprintf("%s (%d mentions, %.1f%%)\n", digest.Brand, share.Count, share.Percentage))
		sb.WriteString(digest.Text + "\n\n")
	}

	return sb.String()
}
