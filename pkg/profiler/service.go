package profiler

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	minPort = 1024
	maxPort = 49151

	gigabyte = 1 << 30
)

type ServiceOpts struct {
	Port          int
	StatsInterval time.Duration
	Datadir       string
	// Namespace selects the application metrics logged at every stats
	// interval, ie. cosigner for cosigner_submissions_total.
	Namespace string
	// Gatherer defaults to the Prometheus default registry.
	Gatherer prometheus.Gatherer
}

func (o ServiceOpts) validate() error {
	if len(o.Datadir) == 0 {
		return fmt.Errorf("missing profiler datadir")
	}
	if o.Port < minPort || o.Port > maxPort {
		return fmt.Errorf("port must be in range [%d, %d]", minPort, maxPort)
	}
	if o.StatsInterval < 0 {
		return fmt.Errorf("stats interval must not be negative")
	}
	return nil
}

// ProfilerService serves pprof and the Prometheus metrics of the process,
// periodically logs runtime and application stats and dumps every metric
// into the datadir when stopped.
type ProfilerService struct {
	opts   ServiceOpts
	server *http.Server
	stopFn context.CancelFunc

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewService(opts ServiceOpts) (*ProfilerService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if err := os.MkdirAll(opts.Datadir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create profiler datadir: %s", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("profiler: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("profiler: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	server := &http.Server{Addr: fmt.Sprintf(":%d", opts.Port), Handler: mux}
	return &ProfilerService{opts, server, nil, logFn, warnFn}, nil
}

func (s *ProfilerService) Start() error {
	runtime.SetBlockProfileRate(1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			s.warn(err, "server stopped unexpectedly")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.stopFn = cancel
	if s.opts.StatsInterval > 0 {
		go s.runStats(ctx)
	}

	s.log("start at url http://localhost:%d/debug/pprof/", s.opts.Port)
	s.log("metrics available at http://localhost:%d/metrics", s.opts.Port)
	return nil
}

func (s *ProfilerService) Stop() {
	if s.stopFn != nil {
		s.stopFn()
	}
	if err := s.dumpMetrics(); err != nil {
		s.warn(err, "error while dumping metrics")
	}
	s.server.Shutdown(context.Background())
	s.log("stop")
}

func (s *ProfilerService) runStats(ctx context.Context) {
	ticker := time.NewTicker(s.opts.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logRuntimeStats()
			s.logAppStats()
		}
	}
}

func (s *ProfilerService) logRuntimeStats() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s.log(
		"total allocated: %.3fGB, heap allocated: %.3fGB, "+
			"allocated objects count: %v, freed objects count: %v, "+
			"go routines: %d",
		float64(memStats.TotalAlloc)/gigabyte,
		float64(memStats.HeapAlloc)/gigabyte,
		memStats.Mallocs, memStats.Frees, runtime.NumGoroutine(),
	)
}

func (s *ProfilerService) logAppStats() {
	if s.opts.Namespace == "" {
		return
	}
	stats, err := Snapshot(s.opts.Gatherer, s.opts.Namespace)
	if err != nil {
		s.warn(err, "failed to gather %s metrics", s.opts.Namespace)
		return
	}
	if len(stats) == 0 {
		return
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, fmt.Sprintf("%s=%v", k, stats[k]))
	}
	s.log("%s stats: %s", s.opts.Namespace, strings.Join(entries, ", "))
}

// dumpMetrics writes every gathered metric family into a file of the
// datadir named after the current time.
func (s *ProfilerService) dumpMetrics() error {
	path := filepath.Join(s.opts.Datadir, time.Now().Format(time.RFC3339))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	families, err := s.opts.Gatherer.Gather()
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(file)
	for _, f := range families {
		if _, err := writer.WriteString(f.String() + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// Snapshot returns the current value of the counters and gauges of the
// given namespace, keyed by metric name and labels, for example
// cosigner_submissions_total{result="ok"}.
func Snapshot(
	gatherer prometheus.Gatherer, namespace string,
) (map[string]float64, error) {
	families, err := gatherer.Gather()
	if err != nil {
		return nil, err
	}

	prefix := namespace + "_"
	stats := make(map[string]float64)
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), prefix) {
			continue
		}
		for _, m := range f.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			default:
				continue
			}

			key := f.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				pairs := make([]string, 0, len(labels))
				for _, l := range labels {
					pairs = append(pairs, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
				}
				key = fmt.Sprintf("%s{%s}", key, strings.Join(pairs, ","))
			}
			stats[key] = value
		}
	}
	return stats, nil
}
