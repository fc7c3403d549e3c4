package mailer

import (
	"fmt"
	"html"
	"strings"
)

// TicketLink builds the public URL of a ticket.
func TicketLink(baseURL, ticketID string) string {
	return strings.TrimRight(baseURL, "/") + "/tickets/" + ticketID
}

// AutoCloseNotice tells the requester their ticket was closed for lack of validation.
func AutoCloseNotice(to string, reference int64, title string, hours int, link string) Message {
	subject := fmt.Sprintf("Ticket #%d cerrado automáticamente", reference)
	plain := fmt.Sprintf(`Hola,

Tu ticket #%d "%s" se ha cerrado automáticamente tras %d horas en espera de validación sin respuesta.

Si el problema persiste, responde al ticket y lo reabriremos.
%s
`, reference, title, hours, link)
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<p>Hola,</p>
			<p>Tu ticket <strong>#%d</strong> "%s" se ha cerrado automáticamente tras %d horas en espera de validación sin respuesta.</p>
			<p>Si el problema persiste, responde al ticket y lo reabriremos.</p>
			<p><a href="%s">Ver ticket</a></p>
		</body>
		</html>
	`, reference, html.EscapeString(title), hours, html.EscapeString(link))
	return Message{To: to, Subject: subject, HTML: htmlBody, Plain: plain}
}

// DigestItem is one notification line in a recipient digest.
type DigestItem struct {
	Heading string
	Body    string
	Link    string
}

// Digest renders a per-recipient digest. Item bodies are markdown.
func (r *Renderer) Digest(to, name string, items []DigestItem) (Message, error) {
	greeting := "Hola"
	if strings.TrimSpace(name) != "" {
		greeting = "Hola " + strings.TrimSpace(name)
	}

	var md strings.Builder
	var plain strings.Builder
	fmt.Fprintf(&md, "%s,\n\nTienes %d notificaciones nuevas:\n\n", greeting, len(items))
	fmt.Fprintf(&plain, "%s,\n\nTienes %d notificaciones nuevas:\n\n", greeting, len(items))
	for _, item := range items {
		fmt.Fprintf(&md, "### %s\n\n%s\n\n", item.Heading, item.Body)
		fmt.Fprintf(&plain, "- %s\n  %s\n", item.Heading, item.Body)
		if item.Link != "" {
			fmt.Fprintf(&md, "[Ver ticket](%s)\n\n", item.Link)
			fmt.Fprintf(&plain, "  %s\n", item.Link)
		}
	}

	body, err := r.ToHTML(md.String())
	if err != nil {
		return Message{}, err
	}

	subject := "Nueva notificación del centro de soporte"
	if len(items) > 1 {
		subject = fmt.Sprintf("%d notificaciones nuevas del centro de soporte", len(items))
	}
	return Message{
		To:      to,
		Subject: subject,
		HTML:    "<html><body>" + body + "</body></html>",
		Plain:   plain.String(),
	}, nil
}
