package processor

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"load_cell_report/derivation"
	"load_cell_report/logger"
	"load_cell_report/metrics"
	"load_cell_report/models"
	"load_cell_report/scanner"

	"github.com/google/uuid"
)

// Exporter writes charts for derived series
type Exporter interface {
	ExportSeries(r *derivation.Result) ([]string, error)
	ExportFleet(fleet derivation.Fleet) ([]string, error)
}

// Store persists derived results under a run id
type Store interface {
	BeginRun(runID string, startedAt time.Time) error
	SaveResult(runID string, r *derivation.Result) (int, error)
	FinishRun(runID string, finishedAt time.Time, total, failed, skipped, stored int) error
}

// Options configure a Processor
type Options struct {
	WorkerCount   int
	MergeAdjacent bool
	// FailFast processes series one at a time and stops at the first failure.
	FailFast bool
	// Store and Metrics are optional.
	Store   Store
	Metrics *metrics.Metrics
}

// SeriesResult is the outcome of processing one reading export
type SeriesResult struct {
	FilePath   string
	Name       string
	Result     *derivation.Result
	ErrorCount int
	Charts     []string
	Stored     int
	Duration   time.Duration
	Error      error
}

// Summary is the outcome of a batch run
type Summary struct {
	RunID       string
	Series      []SeriesResult
	FleetCharts []string
	Succeeded   int
	Failed      int
	// Skipped counts series never attempted because a fail-fast run stopped early.
	Skipped     int
	Readings    int
	RowsSkipped int
	Duration    time.Duration
}

// Processor derives and exports every reading series matching a pattern
type Processor struct {
	calibration derivation.CalibrationSource
	exporter    Exporter
	opts        Options
	now         func() time.Time
	newRunID    func() string
}

// New creates a processor. A non-positive worker count uses the number of
// CPUs, capped at 8.
func New(calibration derivation.CalibrationSource, exporter Exporter, opts Options) *Processor {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = runtime.NumCPU()
		if opts.WorkerCount > 8 {
			opts.WorkerCount = 8
		}
	}
	if opts.FailFast {
		opts.WorkerCount = 1
	}
	return &Processor{
		calibration: calibration,
		exporter:    exporter,
		opts:        opts,
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
}

// Run processes every CSV file matching pattern. Each series is handled
// independently; the returned error reports how many failed.
func (p *Processor) Run(pattern string) (*Summary, error) {
	start := p.now()
	summary := &Summary{RunID: p.newRunID()}

	jobs, err := scanner.Discover(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to find CSV files: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no CSV files match %s", pattern)
	}

	logger.Printf("Run %s: found %d reading export(s)\n", summary.RunID, len(jobs))
	logger.Printf("Processing with %d parallel workers\n", p.opts.WorkerCount)

	if p.opts.Store != nil {
		if err := p.opts.Store.BeginRun(summary.RunID, start); err != nil {
			return nil, err
		}
	}

	rejected := labelCollisions(jobs)

	if p.opts.FailFast {
		summary.Series = p.processSequential(summary.RunID, jobs, rejected)
	} else {
		summary.Series = p.processParallel(summary.RunID, jobs, rejected)
	}
	summary.Skipped = len(jobs) - len(summary.Series)

	sort.Slice(summary.Series, func(i, j int) bool {
		return summary.Series[i].FilePath < summary.Series[j].FilePath
	})

	stored := 0
	var derived []*derivation.Result
	for _, s := range summary.Series {
		summary.RowsSkipped += s.ErrorCount
		if s.Error != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.Readings += len(s.Result.Readings)
		stored += s.Stored
		derived = append(derived, s.Result)
	}

	if len(derived) > 0 && p.exporter != nil {
		summary.FleetCharts, err = p.exporter.ExportFleet(derivation.BuildFleet(derived))
		if err != nil {
			return summary, fmt.Errorf("failed to export fleet charts: %w", err)
		}
		if p.opts.Metrics != nil {
			p.opts.Metrics.ChartsWritten.Add(float64(len(summary.FleetCharts)))
		}
	}

	finished := p.now()
	summary.Duration = finished.Sub(start)

	if p.opts.Store != nil {
		if err := p.opts.Store.FinishRun(summary.RunID, finished, len(jobs), summary.Failed, summary.Skipped, stored); err != nil {
			return summary, err
		}
	}
	if p.opts.Metrics != nil {
		p.opts.Metrics.Finish(summary.Failed == 0 && summary.Skipped == 0, finished)
	}

	if summary.Failed > 0 {
		if summary.Skipped > 0 {
			return summary, fmt.Errorf("%d of %d series failed, %d skipped", summary.Failed, len(jobs), summary.Skipped)
		}
		return summary, fmt.Errorf("%d of %d series failed", summary.Failed, len(jobs))
	}
	return summary, nil
}

// labelCollisions rejects every series whose chart label is already taken
// by an earlier series. Charts are named by label, so two series sharing one
// would overwrite each other's files.
func labelCollisions(jobs []scanner.FileJob) map[string]error {
	rejected := make(map[string]error)
	owner := make(map[string]string, len(jobs))
	for _, job := range jobs {
		name := job.SeriesName()
		label := scanner.ShortLabel(name)
		if first, taken := owner[label]; taken {
			rejected[job.FilePath] = models.NewDataIntegrityError(name,
				"chart label %q is already used by series %q", label, first)
			logger.Warnf("Series %s shares chart label %q with %s and will not be processed\n", name, label, first)
			continue
		}
		owner[label] = name
	}
	return rejected
}

// processSequential stops at the first failing series
func (p *Processor) processSequential(runID string, jobs []scanner.FileJob, rejected map[string]error) []SeriesResult {
	var results []SeriesResult
	for i, job := range jobs {
		logger.LogProgress(i+1, len(jobs), job.FileName)
		result := p.processSeries(runID, job, rejected[job.FilePath])
		results = append(results, result)
		if result.Error != nil {
			logger.Errorf("Stopping after %s: %v\n", job.FileName, result.Error)
			break
		}
	}
	return results
}

// processParallel processes series using worker goroutines
func (p *Processor) processParallel(runID string, files []scanner.FileJob, rejected map[string]error) []SeriesResult {
	jobs := make(chan scanner.FileJob, len(files))
	results := make(chan SeriesResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < p.opts.WorkerCount; i++ {
		wg.Add(1)
		go p.worker(runID, jobs, results, rejected, &wg)
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []SeriesResult
	for result := range results {
		all = append(all, result)
		logger.LogProgress(len(all), len(files), filepath.Base(result.FilePath))
	}
	return all
}

// worker processes series from the job channel
func (p *Processor) worker(runID string, jobs <-chan scanner.FileJob, results chan<- SeriesResult, rejected map[string]error, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		results <- p.processSeries(runID, job, rejected[job.FilePath])
	}
}

// processSeries loads, derives, exports and stores one series. A non-nil
// rejection fails the series without reading it.
func (p *Processor) processSeries(runID string, job scanner.FileJob, rejection error) (result SeriesResult) {
	start := time.Now()
	result = SeriesResult{FilePath: job.FilePath, Name: job.SeriesName()}
	defer func() {
		result.Duration = time.Since(start)
		p.observe(result)
	}()

	if rejection != nil {
		result.Error = rejection
		return result
	}

	loaded, err := scanner.LoadFile(job)
	if err != nil {
		result.Error = err
		return result
	}
	result.ErrorCount = loaded.ErrorCount

	derived, err := derivation.DeriveSeries(loaded.Name, loaded.Series, p.calibration, derivation.Options{
		MergeAdjacent: p.opts.MergeAdjacent,
	})
	if err != nil {
		result.Error = err
		return result
	}
	result.Result = derived

	if p.exporter != nil {
		result.Charts, err = p.exporter.ExportSeries(derived)
		if err != nil {
			result.Error = fmt.Errorf("failed to export charts: %w", err)
			return result
		}
	}

	if p.opts.Store != nil {
		result.Stored, err = p.opts.Store.SaveResult(runID, derived)
		if err != nil {
			result.Error = err
			return result
		}
	}

	s := derived.Summary
	logger.Printf("✓ Completed %s (%s): %d readings, %d temp fault, %d subzero, max |delta| %.3f in %v\n",
		job.FileName, derived.InstrumentID, s.Readings, len(derived.TempFault), len(derived.Subzero),
		s.MaxAbsDelta, time.Since(start))
	return result
}

func (p *Processor) observe(r SeriesResult) {
	m := p.opts.Metrics
	if m == nil {
		return
	}
	m.ObserveSeries(r.Error == nil, r.Duration)
	m.RowsSkipped.Add(float64(r.ErrorCount))
	m.ChartsWritten.Add(float64(len(r.Charts)))
	if r.Error == nil && r.Result != nil {
		m.ReadingsDerived.Add(float64(len(r.Result.Readings)))
		m.Intervals.WithLabelValues(string(models.AnomalyTempFault)).Add(float64(len(r.Result.TempFault)))
		m.Intervals.WithLabelValues(string(models.AnomalySubzero)).Add(float64(len(r.Result.Subzero)))
	}
}

// DisplaySummary logs a summary of the run
func DisplaySummary(summary *Summary) {
	logger.Println("\n" + strings.Repeat("=", 60))
	logger.Println("PROCESSING SUMMARY")
	logger.Println(strings.Repeat("=", 60))

	for _, s := range summary.Series {
		name := filepath.Base(s.FilePath)
		if s.Error != nil {
			logger.LogResult(name, false, s.Error.Error())
			continue
		}
		logger.LogResult(name, true, fmt.Sprintf("%d readings, %d skipped rows, %d charts (%v)",
			len(s.Result.Readings), s.ErrorCount, len(s.Charts), s.Duration))
	}

	logger.Println(strings.Repeat("-", 60))
	logger.Printf("Run ID: %s\n", summary.RunID)
	logger.Printf("Series processed: %d\n", len(summary.Series))
	logger.Printf("Successful: %d\n", summary.Succeeded)
	logger.Printf("Failed: %d\n", summary.Failed)
	if summary.Skipped > 0 {
		logger.Printf("Skipped: %d\n", summary.Skipped)
	}
	logger.Printf("Readings derived: %d\n", summary.Readings)
	logger.Printf("Rows skipped: %d\n", summary.RowsSkipped)
	logger.Printf("Fleet charts: %d\n", len(summary.FleetCharts))
	logger.Printf("Total processing time: %v\n", summary.Duration)
	logger.Println(strings.Repeat("=", 60))
}
