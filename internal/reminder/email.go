package reminder

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/meetlog/meetlog/internal/contacts"
)

// renderEmail builds the HTML body listing today's birthdays for one account.
func renderEmail(items []contacts.Contact, day time.Time) string {
	var b strings.Builder
	b.WriteString("<h2>Birthdays today</h2>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n<ul>\n", html.EscapeString(day.Format("Monday, January 2")))
	for _, item := range items {
		line := html.EscapeString(item.Name)
		if item.LocationFrom != "" {
			line += " (" + html.EscapeString(item.LocationFrom) + ")"
		}
		fmt.Fprintf(&b, "<li>%s</li>\n", line)
	}
	b.WriteString("</ul>\n")
	return b.String()
}

func subjectFor(items []contacts.Contact) string {
	if len(items) == 1 {
		return fmt.Sprintf("Birthday today: %s", items[0].Name)
	}
	return fmt.Sprintf("%d birthdays today", len(items))
}
