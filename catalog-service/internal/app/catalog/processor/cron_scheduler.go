package processor

import (
	"context"

	"storefront/catalog-service/internal/app/catalog/service"
	"storefront/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// cronLogger - адаптер zerolog под cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// CronScheduler запускает полную сверку счётчиков и рейтингов по расписанию.
// Запуски не перекрываются: если прошлая сверка ещё идёт, очередной тик пропускается.
type CronScheduler struct {
	cron       *cron.Cron
	reconciler service.ReconcileServiceInterface
	log        zerolog.Logger
}

func NewCronScheduler(reconciler service.ReconcileServiceInterface) *CronScheduler {
	log := logger.Component("reconcile-cron")
	cl := cronLogger{log: log}

	return &CronScheduler{
		cron:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		reconciler: reconciler,
		log:        log,
	}
}

// Start регистрирует задачу и запускает планировщик.
// runOnStartup выполняет одну сверку синхронно до возврата.
func (s *CronScheduler) Start(ctx context.Context, schedule string, runOnStartup bool) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.runReconcile(ctx, "cron") }); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("schedule", schedule).Msg("reconcile scheduler started")

	if runOnStartup {
		s.runReconcile(ctx, "startup")
	}

	return nil
}

func (s *CronScheduler) Stop() {
	s.log.Info().Msg("stopping reconcile scheduler")
	<-s.cron.Stop().Done()
	s.log.Info().Msg("reconcile scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}

func (s *CronScheduler) runReconcile(ctx context.Context, trigger string) {
	report, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("trigger", trigger).Msg("reconciliation failed")
		return
	}

	s.log.Info().
		Str("trigger", trigger).
		Int("products_repaired", report.ProductsRepaired).
		Int("reviews_repaired", report.ReviewsRepaired).
		Int("products_rated", report.ProductsRated).
		Dur("duration", report.Duration).
		Msg("reconciliation finished")
}
