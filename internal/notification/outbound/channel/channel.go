// Package channel holds one dispatcher per delivery channel. Each renders a
// batch of events for a recipient and reports delivery as an entity.Outcome;
// failures never escape as errors.
package channel

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

//go:embed templates
var templateFS embed.FS

const defaultSender = "IR Notify"

type eventView struct {
	Name        string
	Company     string
	Category    string
	When        string
	Location    string
	Description string
}

type renderData struct {
	Sender string
	Name   string
	Intro  string
	Events []eventView
}

func newRenderData(sender string, events []entity.Event, rcp entity.Recipient) renderData {
	loc := rcp.Location()

	return renderData{
		Sender: sender,
		Name:   rcp.DisplayName(),
		Intro:  intro(len(events)),
		Events: lo.Map(events, func(e entity.Event, _ int) eventView {
			return eventView{
				Name:        e.Name,
				Company:     e.CompanyName,
				Category:    e.Category.Label(),
				When:        formatWhen(e, loc),
				Location:    e.Location,
				Description: strings.TrimSpace(e.Description),
			}
		}),
	}
}

func intro(n int) string {
	if n == 1 {
		return "You have 1 upcoming investor event."
	}
	return fmt.Sprintf("You have %d upcoming investor events.", n)
}

func subject(n int) string {
	if n == 1 {
		return "1 upcoming investor event"
	}
	return fmt.Sprintf("%d upcoming investor events", n)
}

func formatWhen(e entity.Event, loc *time.Location) string {
	start := e.StartAt.In(loc)
	out := start.Format("Mon 02 Jan 2006 15:04 MST")
	if e.EndAt == nil {
		return out
	}

	end := e.EndAt.In(loc)
	if end.YearDay() == start.YearDay() && end.Year() == start.Year() {
		return out + " - " + end.Format("15:04")
	}
	return out + " - " + end.Format("Mon 02 Jan 2006 15:04")
}

func eventIDs(events []entity.Event) []int64 {
	return lo.Map(events, func(e entity.Event, _ int) int64 { return e.ID })
}

func joinIDs(ids []int64) string {
	return strings.Join(lo.Map(ids, func(id int64, _ int) string { return strconv.FormatInt(id, 10) }), ",")
}

func parseHTML(name string) (*htmltemplate.Template, error) {
	return htmltemplate.New(name).Option("missingkey=zero").ParseFS(templateFS, "templates/"+name)
}

func parseText(name string) (*texttemplate.Template, error) {
	return texttemplate.New(name).Option("missingkey=zero").ParseFS(templateFS, "templates/"+name)
}

type templateExecutor interface {
	ExecuteTemplate(wr io.Writer, name string, data any) error
}

func execute(t templateExecutor, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// newLimiter returns an unlimited limiter for a non-positive rate.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
}

func waitTurn(ctx context.Context, l *rate.Limiter) error {
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("%w: throttled: %w", entity.ErrTransport, err)
	}
	return nil
}

func fail(span trace.Span, err error) entity.Outcome {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return entity.Failed(err)
}
