// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package mail

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/samber/oops"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// resetTemplateName is the embedded template file for the reset mail.
const resetTemplateName = "reset_password.html.tmpl"

var resetTemplate = template.Must(
	template.ParseFS(templatesFS, "templates/"+resetTemplateName))

// resetData feeds the reset template.
type resetData struct {
	Email     string
	ResetLink string
	AppName   string
	Year      int
}

// renderResetEmail renders the HTML body of a password reset mail.
func renderResetEmail(toEmail, resetLink, appName string) (string, error) {
	var buf bytes.Buffer
	err := resetTemplate.Execute(&buf, resetData{
		Email:     toEmail,
		ResetLink: resetLink,
		AppName:   appName,
		Year:      time.Now().Year(),
	})
	if err != nil {
		return "", oops.Code("MAIL_RENDER_FAILED").
			With("template", resetTemplateName).
			Wrap(err)
	}
	return buf.String(), nil
}
