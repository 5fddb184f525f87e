package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

type Rendered struct {
	Subject string
	HTML    string
}

const layout = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background-color: {{.Accent}}; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
.content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 8px 8px; }
.code { background-color: #e5e7eb; padding: 15px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 5px; border-radius: 5px; margin: 20px 0; color: #374151; }
.footer { text-align: center; margin-top: 30px; color: #6b7280; font-size: 14px; }
</style>
</head>
<body>
<div class="header">
<h1>Labs Monitor</h1>
<p>{{.Title}}</p>
</div>
<div class="content">
<h2>Hello {{.FirstName}}!</h2>
<p>{{.Intro}}</p>
<div class="code">{{.Code}}</div>
<p>This code will expire in {{.TTL}} minutes for security reasons.</p>
<p>{{.Ignore}}</p>
</div>
<div class="footer">
<p>&copy; Labs Monitor. All rights reserved.</p>
</div>
</body>
</html>`

var page = template.Must(template.New("mail").Parse(layout))

type pageData struct {
	Title     string
	Accent    template.CSS
	FirstName string
	Intro     string
	Code      string
	TTL       int
	Ignore    string
}

// Render builds subject and HTML body for a message. Names are escaped by html/template.
func Render(msg Message) (Rendered, error) {
	ttl := msg.CodeTTLMinutes
	if ttl <= 0 {
		ttl = 10
	}
	name := msg.FirstName
	if name == "" {
		name = "there"
	}

	var (
		subject string
		data    pageData
	)

	switch msg.Kind {
	case KindVerification:
		subject = "Verify Your Email - Labs Monitor"
		data = pageData{
			Title:  "Email Verification",
			Accent: "#3b82f6",
			Intro:  "Thank you for registering with Labs Monitor. To complete your registration, please verify your email address by entering the following verification code:",
			Ignore: "If you didn't create an account with Labs Monitor, please ignore this email.",
		}
	case KindPasswordReset:
		subject = "Reset Your Password - Labs Monitor"
		data = pageData{
			Title:  "Password Reset",
			Accent: "#ef4444",
			Intro:  "We received a request to reset your Labs Monitor password. Enter the following code to choose a new password:",
			Ignore: "If you didn't request a password reset, you can safely ignore this email.",
		}
	default:
		return Rendered{}, fmt.Errorf("mail: unknown kind %q", msg.Kind)
	}

	data.FirstName = name
	data.Code = msg.Code
	data.TTL = ttl

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return Rendered{}, fmt.Errorf("mail: render %s: %w", msg.Kind, err)
	}

	return Rendered{Subject: subject, HTML: buf.String()}, nil
}
