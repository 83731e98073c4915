// Package archive keeps dispatch cycle reports as JSON objects in a bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const prefix = "notification-cycles"

type Archive struct {
	client storage.Storage
	bucket string
	ins    instrument.Instrumentation
}

func New(client storage.Storage, bucket string, ins instrument.Instrumentation) *Archive {
	return &Archive{client: client, bucket: bucket, ins: ins}
}

func dayPrefix(day time.Time) string {
	return prefix + "/" + day.UTC().Format("2006/01/02") + "/"
}

func reportKey(r entity.CycleReport) string {
	return fmt.Sprintf("%s%d.json", dayPrefix(r.StartedAt), r.ID)
}

func (a *Archive) SaveReport(ctx context.Context, report entity.CycleReport) (err error) {
	ctx, span := a.ins.Tracer("notification.outbound.archive").Start(ctx, "SaveReport")
	defer func() { endSpan(span, err) }()

	body, err := json.Marshal(report)
	if err != nil {
		return err
	}

	key := reportKey(report)
	span.SetAttributes(attribute.String("object.key", key))

	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), storage.PutOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata:    map[string]string{"trigger": report.Trigger.String()},
	})
	return err
}

// ListReports returns up to limit reports started on the given UTC day, oldest first.
func (a *Archive) ListReports(ctx context.Context, day time.Time, limit int) (_ []entity.CycleReport, err error) {
	ctx, span := a.ins.Tracer("notification.outbound.archive").Start(ctx, "ListReports")
	defer func() { endSpan(span, err) }()

	objects, err := a.client.ListObjects(ctx, a.bucket, dayPrefix(day), limit)
	if err != nil {
		return nil, err
	}

	objects = lo.Filter(objects, func(o storage.ObjectInfo, _ int) bool {
		return strings.HasSuffix(o.Key, ".json")
	})

	reports := make([]entity.CycleReport, 0, len(objects))
	for _, obj := range objects {
		report, err := a.read(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	slices.SortFunc(reports, func(x, y entity.CycleReport) int {
		return x.StartedAt.Compare(y.StartedAt)
	})
	return reports, nil
}

func (a *Archive) read(ctx context.Context, key string) (entity.CycleReport, error) {
	rc, _, err := a.client.GetObject(ctx, a.bucket, key)
	if err != nil {
		return entity.CycleReport{}, err
	}
	defer rc.Close()

	var report entity.CycleReport
	if err := json.NewDecoder(rc).Decode(&report); err != nil {
		return entity.CycleReport{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return report, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
