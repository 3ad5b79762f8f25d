package usecase

import (
	"context"

	"tabclock/internal/modules/attention/domain"
	attentiondto "tabclock/internal/modules/attention/dto"
	attentionin "tabclock/internal/modules/attention/port/in"
	"tabclock/internal/modules/attention/service"
)

type Interactor struct {
	svc *service.AttentionService
}

func NewInteractor(svc *service.AttentionService) attentionin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) TabActivated(ctx context.Context, input attentiondto.TabActivatedInput) error {
	return i.svc.TabActivated(ctx, input.TabID, input.URL)
}

func (i *Interactor) TabUpdated(ctx context.Context, input attentiondto.TabUpdatedInput) error {
	return i.svc.TabUpdated(ctx, input.TabID, input.URL)
}

func (i *Interactor) TabRemoved(ctx context.Context, tabID string) error {
	return i.svc.TabRemoved(ctx, tabID)
}

func (i *Interactor) WindowFocusChanged(ctx context.Context, windowID string) error {
	return i.svc.WindowFocusChanged(ctx, windowID)
}

func (i *Interactor) Tick(ctx context.Context) error {
	return i.svc.Tick(ctx)
}

func (i *Interactor) Flush(ctx context.Context) error {
	return i.svc.Flush(ctx)
}

func (i *Interactor) Bootstrap(ctx context.Context) error {
	return i.svc.Recover(ctx)
}

func (i *Interactor) TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error) {
	report, err := i.svc.TimeData(ctx, days)
	if err != nil {
		return attentiondto.TimeDataOutput{}, err
	}
	out := attentiondto.TimeDataOutput{
		From:    report.From,
		To:      report.To,
		Days:    report.Days,
		TotalMs: report.TotalMs,
		Totals:  make([]attentiondto.DomainTotalOutput, 0, len(report.Totals)),
		Buckets: make([]attentiondto.DayBucketOutput, 0, len(report.Buckets)),
	}
	for _, t := range report.Totals {
		out.Totals = append(out.Totals, attentiondto.DomainTotalOutput{Domain: t.Domain, Ms: t.Ms})
	}
	for _, b := range report.Buckets {
		out.Buckets = append(out.Buckets, attentiondto.DayBucketOutput{Day: b.Day, TotalMs: b.TotalMs, Domains: b.Domains})
	}
	return out, nil
}

func (i *Interactor) State(context.Context) attentiondto.StateOutput {
	switch st := i.svc.State().(type) {
	case domain.Tracking:
		return attentiondto.StateOutput{State: "tracking", TabID: st.Segment.TabID, Domain: st.Segment.Domain, Since: st.Segment.StartedAt}
	case domain.Idle:
		return attentiondto.StateOutput{State: "idle", TabID: st.TabID}
	default:
		return attentiondto.StateOutput{State: "unfocused"}
	}
}
