package contact

import (
	"bytes"
	"fmt"
	"io/fs"
	texttemplate "text/template"

	"github.com/stereo-express/touch/internal/feat/submissions"
	"github.com/stereo-express/touch/pkg/cl/mailer"
)

const mailTemplatePath = "assets/templates/mail/contact_form.txt"

type mailField struct {
	Label string
	Value string
}

type mailData struct {
	Intro    string
	Fields   []mailField
	SiteName string
}

func parseMailTemplate(fsys fs.FS) (*texttemplate.Template, error) {
	tmpl, err := texttemplate.ParseFS(fsys, mailTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("cannot parse mail template: %w", err)
	}
	return tmpl, nil
}

// recipient is the subject mail when set, otherwise the site address.
func (h *Handler) recipient(subjectMail string) string {
	if subjectMail != "" {
		return subjectMail
	}
	return h.cfg.Site.Mail
}

// buildMail renders the notification of sub in the submission language.
func (h *Handler) buildMail(sub submissions.Submission, to string) (mailer.Message, error) {
	lang := sub.Language
	label := func(key string) string {
		l, _ := h.formatter.Label(lang, key)
		return l
	}

	newsletter := h.tr.T(lang, "No")
	if sub.Newsletter {
		newsletter = h.tr.T(lang, "Yes")
	}

	data := mailData{
		Intro: h.tr.T(lang, "%s sent a message using the contact form.", sub.Name),
		Fields: []mailField{
			{Label: label("name"), Value: sub.Name},
			{Label: label("mail"), Value: sub.Mail},
			{Label: label("subject"), Value: sub.SubjectName},
			{Label: label("message"), Value: sub.Message},
			{Label: label("newsletter"), Value: newsletter},
			{Label: label("language"), Value: h.provider.LanguageName(lang)},
			{Label: label("timestamp"), Value: h.formatter.FormatDate(sub.Time())},
		},
		SiteName: h.cfg.Site.Name,
	}

	var body bytes.Buffer
	if err := h.mailTmpl.Execute(&body, data); err != nil {
		return mailer.Message{}, fmt.Errorf("cannot render mail: %w", err)
	}

	return mailer.Message{
		To:      to,
		ReplyTo: sub.Mail,
		Subject: fmt.Sprintf("[%s] %s", h.cfg.Site.Name, sub.SubjectName),
		Body:    body.String(),
	}, nil
}
