package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"market_maker/internal/models"
)

var (
	eventHeader  = []string{"timestamp", "instance_id", "env", "event_type", "symbol", "details", "extra"}
	metricHeader = []string{"timestamp", "instance_id", "env", "metric_name", "value", "unit", "symbol", "side", "level", "sub_type", "details"}
)

// csvFile — дневной файл, открывается лениво и переоткрывается при смене даты.
type csvFile struct {
	prefix string
	header []string

	day string
	f   *os.File
	w   *csv.Writer
}

func (c *csvFile) writer(dir string, at time.Time) (*csv.Writer, error) {
	day := at.Format("20060102")
	if c.w != nil && c.day == day {
		return c.w, nil
	}
	if err := c.close(); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.csv", c.prefix, day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(c.header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	c.day, c.f, c.w = day, f, w
	return w, nil
}

func (c *csvFile) close() error {
	if c.f == nil {
		return nil
	}
	c.w.Flush()
	err := c.w.Error()
	if cErr := c.f.Close(); err == nil {
		err = cErr
	}
	c.f, c.w = nil, nil
	return err
}

// CSVSink пишет events-YYYYMMDD.csv и metrics-YYYYMMDD.csv в каталог логов.
type CSVSink struct {
	dir string

	mu      sync.Mutex
	events  csvFile
	metrics csvFile
}

func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewCSVSink: %w", err)
	}
	return &CSVSink{
		dir:     dir,
		events:  csvFile{prefix: "events", header: eventHeader},
		metrics: csvFile{prefix: "metrics", header: metricHeader},
	}, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) WriteEvent(_ context.Context, ev models.RiskEvent) error {
	extra := "{}"
	if len(ev.Extra) > 0 {
		b, err := sonic.Marshal(ev.Extra)
		if err != nil {
			return fmt.Errorf("CSVSink.WriteEvent marshal extra: %w", err)
		}
		extra = string(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.events.writer(s.dir, ev.Time)
	if err != nil {
		return fmt.Errorf("CSVSink.WriteEvent: %w", err)
	}
	if err := w.Write([]string{
		ev.Time.Format(time.RFC3339Nano),
		ev.InstanceID,
		ev.Env,
		string(ev.Type),
		ev.Symbol,
		ev.Details,
		extra,
	}); err != nil {
		return fmt.Errorf("CSVSink.WriteEvent: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *CSVSink) WriteMetric(_ context.Context, m models.MetricSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.metrics.writer(s.dir, m.Time)
	if err != nil {
		return fmt.Errorf("CSVSink.WriteMetric: %w", err)
	}
	if err := w.Write([]string{
		m.Time.Format(time.RFC3339Nano),
		m.InstanceID,
		m.Env,
		m.Name,
		m.Value.String(),
		m.Unit,
		m.Symbol,
		"-",
		"-",
		"-",
		FormatDetails(m.Details),
	}); err != nil {
		return fmt.Errorf("CSVSink.WriteMetric: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.events.close()
	if mErr := s.metrics.close(); err == nil {
		err = mErr
	}
	return err
}

// FormatDetails: k1=v1,k2=v2 с сортировкой ключей.
func FormatDetails(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return strings.Join(parts, ",")
}
