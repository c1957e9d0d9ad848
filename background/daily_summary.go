package background

import (
	"context"
	"fmt"
	"time"

	"coffee-backend/infra"
	"coffee-backend/metrics"
	"coffee-backend/model"
	"coffee-backend/service/interfaces"
	"coffee-backend/utils"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultDailySummarySpec 每天 00:05 統計前一天
const DefaultDailySummarySpec = "5 0 * * *"

// CupCounter 每日統計需要的查詢
type CupCounter interface {
	CountPerUserBetween(ctx context.Context, from, to time.Time) ([]model.UserCount, error)
	Location() *time.Location
	Now() time.Time
}

type DailySummary struct {
	logger    zerolog.Logger
	counter   CupCounter
	publisher interfaces.CupEventPublisher
	spec      string
	cron      *cron.Cron
}

func NewDailySummary(logger zerolog.Logger, counter CupCounter, publisher interfaces.CupEventPublisher, spec string) *DailySummary {
	if spec == "" {
		spec = DefaultDailySummarySpec
	}
	return &DailySummary{
		logger:    logger.With().Str("component", "daily-summary").Logger(),
		counter:   counter,
		publisher: publisher,
		spec:      spec,
		cron: cron.New(
			cron.WithLocation(counter.Location()),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

// Start 註冊排程並啟動
func (ds *DailySummary) Start() error {
	_, err := ds.cron.AddFunc(ds.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := ds.Run(metrics.WithSource(ctx, metrics.SourceSystem)); err != nil {
			ds.logger.Error().Err(err).Msg("每日杯數統計失敗")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid daily summary schedule %q: %w", ds.spec, err)
	}

	ds.cron.Start()
	ds.logger.Info().Str("schedule", ds.spec).Str("timezone", ds.counter.Location().String()).Msg("每日杯數統計排程已啟動")
	return nil
}

// Stop 停止排程並等待執行中的工作結束
func (ds *DailySummary) Stop() {
	<-ds.cron.Stop().Done()
	ds.logger.Info().Msg("每日杯數統計排程已停止")
}

// Run 統計前一天每位使用者的杯數並發布 daily_summary 事件
func (ds *DailySummary) Run(ctx context.Context) (*infra.CupEvent, error) {
	loc := ds.counter.Location()
	from, to := utils.PreviousDay(ds.counter.Now(), loc)

	counts, err := ds.counter.CountPerUserBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	event := &infra.CupEvent{
		Type:      infra.CupEventDailySummary,
		Timestamp: time.Now().UTC(),
		Counts:    make(map[string]int64, len(counts)),
	}
	var total int64
	for _, c := range counts {
		event.Counts[c.Username] = c.Count
		total += c.Count
		ds.logger.Info().
			Str("日期", from.Format(model.DateLayout)).
			Str("使用者", c.Username).
			Int64("杯數", c.Count).
			Msg("前一天杯數")
	}

	ds.logger.Info().
		Str("起", utils.FormatLocalDateTime(from, loc)).
		Str("迄", utils.FormatLocalDateTime(to, loc)).
		Int("使用者數", len(counts)).
		Int64("總杯數", total).
		Msg("每日杯數統計完成")

	if ds.publisher != nil {
		ds.publisher.Publish(event)
	}
	return event, nil
}
