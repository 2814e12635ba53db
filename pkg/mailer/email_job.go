package mailer

import (
	"github.com/oksasatya/go-user-directory/pkg/mailer/templates"
)

// EmailJob is a fully rendered email ready to hand to a Sender.
// Text is the fallback body when HTML is set.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// NewTemplateJob renders the named template set for to.
func NewTemplateJob(to, name string, data templates.EmailData) (EmailJob, error) {
	subject, text, html, err := templates.Render(name, data)
	if err != nil {
		return EmailJob{}, err
	}
	return EmailJob{To: to, Subject: subject, Text: text, HTML: html}, nil
}
