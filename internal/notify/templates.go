package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

// Each notification template renders a subject line and a plain-text
// body from the dispatch payload.
type renderedMessage struct {
	Subject string
	Body    string
}

var templates = map[string]struct {
	subject string
	body    string
}{
	"event_added": {
		subject: "{{.site_display_name}}: event added: {{.event_title}}",
		body: "The event \"{{.event_title}}\" was added by {{.user}}.\n\n" +
			"Registrants: {{.registrants_paid}} paid, {{.registrants_pending}} pending.\n" +
			"{{.site_url}}/events/{{.event_ulid}}\n",
	},
	"event_edited": {
		subject: "{{.site_display_name}}: event edited: {{.event_title}}",
		body: "The event \"{{.event_title}}\" was edited by {{.user}}.\n\n" +
			"Registrants: {{.registrants_paid}} paid, {{.registrants_pending}} pending.\n" +
			"{{.site_url}}/events/{{.event_ulid}}\n",
	},
	"event_deleted": {
		subject: "{{.site_display_name}}: event deleted: {{.event_title}}",
		body: "The event \"{{.event_title}}\" was deleted by {{.user}}.\n\n" +
			"It had {{.registrants_paid}} paid and {{.registrants_pending}} pending registrants.\n",
	},
	"registration_confirmation": {
		subject: "{{.site_display_name}}: you are registered for {{.event_title}}",
		body: "Hi {{.registrant_name}},\n\n" +
			"Your registration for \"{{.event_title}}\" is recorded.\n" +
			"View or cancel it any time:\n" +
			"{{.site_url}}/events/{{.event_ulid}}/registrations/confirm/{{.hash_token}}\n",
	},
	"registration_cancelled": {
		subject: "{{.site_display_name}}: registration cancelled for {{.event_title}}",
		body: "The registration of {{.registrant_name}} for \"{{.event_title}}\" was cancelled.\n\n" +
			"Remaining registrants: {{.registrants_paid}} paid, {{.registrants_pending}} pending.\n",
	},
	"registrants_message": {
		subject: "{{.subject}}",
		body:    "{{.body}}",
	},
	"registrants_message_summary": {
		subject: "{{.site_display_name}}: message sent to registrants of {{.event_title}}",
		body: "Your message \"{{.subject}}\" was sent to {{.sent_count}} registrant(s) " +
			"of \"{{.event_title}}\".\n",
	},
}

func render(msg Message) (renderedMessage, error) {
	def, ok := templates[msg.Template]
	if !ok {
		return renderedMessage{}, fmt.Errorf("unknown notification template %q", msg.Template)
	}
	subject, err := renderText(msg.Template+":subject", def.subject, msg.Payload)
	if err != nil {
		return renderedMessage{}, err
	}
	body, err := renderText(msg.Template+":body", def.body, msg.Payload)
	if err != nil {
		return renderedMessage{}, err
	}
	return renderedMessage{Subject: subject, Body: body}, nil
}

func renderText(name, text string, payload map[string]any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
