package mailer

import (
	"bytes"
	"html/template"
)

var (
	welcomeTmpl = template.Must(template.New("welcome").Parse(
		`<p>Hi {{.Name}},</p><p>Welcome to the Greenhouse Growers Association. Your member account is ready and you can now browse the resource library, join the forum and try the farm roadmap assessment.</p>`))

	challengeTmpl = template.Must(template.New("challenge").Parse(
		`<p>A grower submitted a new challenge{{if .Category}} in <b>{{.Category}}</b>{{end}}:</p><blockquote>{{.Text}}</blockquote><p>Review it in the admin dashboard.</p>`))
)

func Welcome(to, name string) (Message, error) {
	body, err := render(welcomeTmpl, map[string]string{"Name": name})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Welcome to the Greenhouse Growers Association", HTMLBody: body}, nil
}

func ChallengeSubmitted(to, category, text string) (Message, error) {
	body, err := render(challengeTmpl, map[string]string{"Category": category, "Text": text})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "New grower challenge submitted", HTMLBody: body}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
