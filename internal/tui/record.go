package tui

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/session"
)

// RenderRecord renders rec as a bordered block. The token is shown only as
// a fingerprint.
func RenderRecord(rec session.Record, styles Styles) string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Session"))
	b.WriteString("\n")

	status := styles.Muted.Render("○ signed out")
	if rec.IsAuthenticated {
		status = styles.Success.Render("● signed in")
	}
	row(&b, styles, "Status", status)

	if rec.User != nil {
		user := fmt.Sprintf("%s (id %d)", rec.User.Email, rec.User.ID)
		if !rec.User.IsActive {
			user += " " + styles.Warning.Render("inactive")
		}
		row(&b, styles, "User", user)
	}
	if rec.Token != "" {
		row(&b, styles, "Token", log.Fingerprint(rec.Token))
	}
	if rec.IsLoading {
		row(&b, styles, "Request", styles.Spinner.Render("in progress"))
	}
	if rec.Message != "" {
		row(&b, styles, "Message", styles.Success.Render(rec.Message))
	}
	if rec.Error != "" {
		row(&b, styles, "Error", styles.Error.Render(rec.Error))
	}

	return styles.Border.Render(strings.TrimRight(b.String(), "\n"))
}

func row(b *strings.Builder, styles Styles, label, value string) {
	b.WriteString(styles.Label.Render(label + ":"))
	b.WriteString(" ")
	b.WriteString(value)
	b.WriteString("\n")
}
