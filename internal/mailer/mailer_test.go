package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererSanitizes(t *testing.T) {
	r := NewRenderer()
	out, err := r.ToHTML("**hola** <script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>hola</strong>")
	assert.NotContains(t, out, "<script>")

	assert.Equal(t, "<p>ok</p>", r.Sanitize(`<p onclick="x()">ok</p>`))
}

func TestDigestGroupsItems(t *testing.T) {
	r := NewRenderer()
	msg, err := r.Digest("ana@client.test", "Ana", []DigestItem{
		{Heading: "#12 Impresora", Body: "Te han asignado el ticket", Link: "https://help.test/tickets/t-12"},
		{Heading: "#13 VPN", Body: "Nuevo comentario de *Luis*"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@client.test", msg.To)
	assert.Equal(t, "2 notificaciones nuevas del centro de soporte", msg.Subject)
	assert.Contains(t, msg.HTML, "<em>Luis</em>")
	assert.Contains(t, msg.HTML, `href="https://help.test/tickets/t-12"`)
	assert.Contains(t, msg.Plain, "Hola Ana,")
	assert.Contains(t, msg.Plain, "- #13 VPN")
}

func TestAutoCloseNoticeMentionsHours(t *testing.T) {
	msg := AutoCloseNotice("ana@client.test", 42, "Impresora <rota>", 72, TicketLink("https://help.test/", "t-42"))
	assert.Equal(t, "Ticket #42 cerrado automáticamente", msg.Subject)
	assert.Contains(t, msg.Plain, "72 horas")
	assert.Contains(t, msg.Plain, "https://help.test/tickets/t-42")
	assert.Contains(t, msg.HTML, "Impresora &lt;rota&gt;")
}
