package notifications

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Message is a rendered e-mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Templates renders the embedded e-mail templates. Each template name has a
// <name>.subject.txt, a <name>.txt and a <name>.html file.
type Templates struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// LoadTemplates parses the embedded templates.
func LoadTemplates() (*Templates, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html email templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text email templates: %w", err)
	}
	return &Templates{html: html, text: text}, nil
}

// Has reports whether a template with the given name exists.
func (t *Templates) Has(name string) bool {
	return t.html.Lookup(name+".html") != nil && t.text.Lookup(name+".subject.txt") != nil
}

// Render renders the subject and bodies of a template.
func (t *Templates) Render(name string, data map[string]string) (*Message, error) {
	if !t.Has(name) {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	var subject, text, html bytes.Buffer
	if err := t.text.ExecuteTemplate(&subject, name+".subject.txt", data); err != nil {
		return nil, fmt.Errorf("execute template %s subject: %w", name, err)
	}
	if tmpl := t.text.Lookup(name + ".txt"); tmpl != nil {
		if err := tmpl.Execute(&text, data); err != nil {
			return nil, fmt.Errorf("execute template %s text: %w", name, err)
		}
	}
	if err := t.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return nil, fmt.Errorf("execute template %s html: %w", name, err)
	}

	return &Message{
		Subject: strings.TrimSpace(subject.String()),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
