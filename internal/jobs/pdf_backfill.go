package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

type pdfBackfiller interface {
	BackfillPDFs(ctx context.Context, limit int) (int, error)
}

// PDFBackfill regenerates missing referral PDFs on a schedule. Generation at
// submit time is best-effort, so a form may be left without its document.
type PDFBackfill struct {
	forms   pdfBackfiller
	cfg     config.JobsConfig
	log     *zap.Logger
	timeout time.Duration
}

func NewPDFBackfill(forms pdfBackfiller, cfg config.JobsConfig, log *zap.Logger) *PDFBackfill {
	return &PDFBackfill{forms: forms, cfg: cfg, log: log, timeout: time.Minute}
}

// Start schedules the job and returns the running scheduler. The caller
// stops it on shutdown.
func (j *PDFBackfill) Start() (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()

	if _, err := s.Every(j.cfg.PDFBackfillInterval).Do(j.run); err != nil {
		return nil, fmt.Errorf("scheduling pdf backfill: %w", err)
	}
	s.StartAsync()

	j.log.Info("pdf backfill scheduled",
		zap.Duration("interval", j.cfg.PDFBackfillInterval),
		zap.Int("batch", j.cfg.PDFBackfillBatch),
	)
	return s, nil
}

func (j *PDFBackfill) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	j.RunOnce(ctx)
}

// RunOnce processes one batch and returns how many PDFs were produced.
func (j *PDFBackfill) RunOnce(ctx context.Context) int {
	n, err := j.forms.BackfillPDFs(ctx, j.cfg.PDFBackfillBatch)
	if err != nil {
		j.log.Error("pdf backfill failed", zap.Error(err), zap.Int("generated", n))
		return n
	}
	if n > 0 {
		j.log.Info("pdf backfill completed", zap.Int("generated", n))
	}
	return n
}
