package handlers

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

func TestRealtimeFilterKeepsNotificationsPrivate(t *testing.T) {
	filter := filterFor(&domain.Profile{ID: "u-1", Role: domain.RoleClient})

	assert.True(t, filter(events.NotificationsChanged("u-1")))
	assert.False(t, filter(events.NotificationsChanged("u-2")))
	assert.False(t, filter(events.NotificationsCreated([]string{"n-1"})))
}

func TestRealtimeFilterScopesTicketEventsForClients(t *testing.T) {
	entity := "e-1"
	other := "e-2"
	creator := "u-3"
	client := filterFor(&domain.Profile{ID: "u-1", Role: domain.RoleClient, EntityID: &entity})
	loner := filterFor(&domain.Profile{ID: "u-3", Role: domain.RoleClient})
	staff := filterFor(&domain.Profile{ID: "a-1", Role: domain.RoleAgent})

	own := events.TicketChanged("t-1").WithAudience(&entity, nil)
	foreign := events.TicketChanged("t-2").WithAudience(&other, nil)
	opened := events.CommentsChanged("t-3").WithAudience(nil, &creator)
	unscoped := events.TicketChanged("t-4")

	assert.True(t, client(own))
	assert.False(t, client(foreign))
	assert.False(t, client(unscoped))
	assert.True(t, loner(opened))
	assert.False(t, loner(own))

	for _, event := range []events.Event{own, foreign, opened, unscoped} {
		assert.True(t, staff(event))
	}
}

func TestWriteEventFormatsServerSentEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	event := events.TicketChanged("t-9")

	require.NoError(t, writeEvent(w, event))

	out := buf.String()
	assert.Contains(t, out, "id: "+event.ID+"\n")
	assert.Contains(t, out, "event: ticket:changed\n")
	assert.Contains(t, out, `"ticket_id":"t-9"`)
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n\n")))
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestOnlyMethodsAndReadiness(t *testing.T) {
	h := NewHealthHandler("helpdesk", "test", map[string]Pinger{
		"postgres": pingerFunc(func(context.Context) error { return nil }),
		"redis":    pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	app := newTestApp()
	app.Get("/ready", h.Ready)
	app.All("/only-post", OnlyMethods("POST"), func(c *fiber.Ctx) error { return c.SendStatus(204) })

	status, body := call(t, app, "GET", "/ready")
	assert.Equal(t, 503, status)
	assert.Contains(t, body, "connection refused")
	assert.Contains(t, body, `"postgres":"ok"`)

	status, _ = call(t, app, "GET", "/only-post")
	assert.Equal(t, 405, status)
	status, _ = call(t, app, "POST", "/only-post")
	assert.Equal(t, 204, status)
}
