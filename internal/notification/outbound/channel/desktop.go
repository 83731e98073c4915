package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/clock"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
)

var errNoSession = errors.New("no open desktop session")

type desktopHub interface {
	Publish(userID int64, n entity.DesktopNotification) int
}

// Desktop pushes browser notifications to the recipient's open sessions. A
// missing grant or no open session is a soft failure.
type Desktop struct {
	hub   desktopHub
	uuid  uid.StringID
	clock clock.Clocker
	ins   instrument.Instrumentation
}

func NewDesktop(hub desktopHub, uuid uid.StringID, clk clock.Clocker, ins instrument.Instrumentation) *Desktop {
	return &Desktop{hub: hub, uuid: uuid, clock: clk, ins: ins}
}

func (d *Desktop) Channel() entity.Channel { return entity.ChannelDesktop }

func (d *Desktop) Render(events []entity.Event, rcp entity.Recipient) (entity.Payload, error) {
	return entity.Payload{
		Channel:    entity.ChannelDesktop,
		UserID:     rcp.UserID,
		Title:      subject(len(events)),
		Body:       summary(events, rcp.Location()),
		EventIDs:   eventIDs(events),
		Permission: rcp.DesktopPermission,
	}, nil
}

func (d *Desktop) Send(ctx context.Context, p entity.Payload) entity.Outcome {
	_, span := d.ins.Tracer("notification.outbound.channel").Start(ctx, "Desktop.Send")
	defer span.End()

	if p.Permission != entity.DesktopPermissionGranted {
		return entity.Failed(fmt.Errorf("%w: desktop notifications are %s", entity.ErrPermission, p.Permission))
	}

	id := d.uuid.Generate()
	delivered := d.hub.Publish(p.UserID, entity.DesktopNotification{
		ID:        id,
		Title:     p.Title,
		Body:      p.Body,
		EventIDs:  p.EventIDs,
		CreatedAt: d.clock.Now(),
	})
	if delivered == 0 {
		return entity.Skipped(errNoSession)
	}

	return entity.Delivered(id)
}
