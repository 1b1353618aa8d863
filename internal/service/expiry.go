// expiry.go — фоновое освобождение истёкших аренд.
package service

import (
	"context"
	"log/slog"
	"time"
)

// ExpirySweeper периодически освобождает аренды с истёкшим сроком.
// Чтения маркетплейса корректны и без него (действующие аренды
// фильтруются по сроку), обход возвращает место пространствам.
type ExpirySweeper struct {
	registry  *RentalRegistry
	interval  time.Duration
	batchSize int
	logger    *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewExpirySweeper создаёт ExpirySweeper.
func NewExpirySweeper(registry *RentalRegistry, interval time.Duration, batchSize int, logger *slog.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		registry:  registry,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With(slog.String("component", "expiry-sweeper")),
	}
}

// Start запускает фоновый обход. При нулевом интервале обход отключён.
func (s *ExpirySweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Фоновое освобождение истёкших аренд отключено")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	s.logger.Info("Фоновое освобождение истёкших аренд запущено",
		slog.Duration("interval", s.interval),
		slog.Int("batch_size", s.batchSize),
	)

	go s.run(ctx)
}

// Stop останавливает фоновый обход и дожидается завершения горутины.
func (s *ExpirySweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Фоновое освобождение истёкших аренд остановлено")
}

func (s *ExpirySweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep выполняет один обход истёкших аренд.
func (s *ExpirySweeper) sweep(ctx context.Context) {
	released, err := s.registry.ExpireDue(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Обход истёкших аренд не удался",
			slog.String("error", err.Error()),
		)
		return
	}
	if released > 0 {
		s.logger.Info("Истёкшие аренды освобождены",
			slog.Int("released", released),
		)
	}
}
