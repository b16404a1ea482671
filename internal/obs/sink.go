package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TimingRecord é emitido pelo monitor de performance, um por requisição.
type TimingRecord struct {
	RequestID string
	Method    string
	Path      string
	Status    int
	Duration  time.Duration
	// Failed marca requisições que passaram pela fronteira de exceções.
	Failed bool
}

// ActivityRecord é emitido para requisições de usuários autenticados.
type ActivityRecord struct {
	RequestID string
	UserID    string
	Method    string
	Path      string
	Status    int
}

// FaultRecord descreve uma falha não tratada convertida pela fronteira de exceções.
type FaultRecord struct {
	RequestID string
	Method    string
	Path      string
	Fault     string
	Panic     bool
	Stack     string
}

// Sink recebe os registros do pipeline. Implementações precisam ser seguras
// para uso concorrente.
type Sink interface {
	Timing(TimingRecord)
	Activity(ActivityRecord)
	Fault(FaultRecord)
}

// LogSink escreve os registros no logrus.
type LogSink struct {
	Log logrus.FieldLogger
}

func NewLogSink(l logrus.FieldLogger) *LogSink { return &LogSink{Log: l} }

func (s *LogSink) Timing(r TimingRecord) {
	s.Log.WithFields(logrus.Fields{
		"request_id":  r.RequestID,
		"method":      r.Method,
		"path":        r.Path,
		"status":      r.Status,
		"duration_ms": float64(r.Duration.Microseconds()) / 1000.0,
		"failed":      r.Failed,
	}).Info(fmt.Sprintf("PerformanceMonitor: %s took %.6f seconds", r.Path, r.Duration.Seconds()))
}

func (s *LogSink) Activity(r ActivityRecord) {
	s.Log.WithFields(logrus.Fields{
		"request_id": r.RequestID,
		"user_id":    r.UserID,
		"method":     r.Method,
		"path":       r.Path,
		"status":     r.Status,
	}).Info(fmt.Sprintf("User %s made a %s request to %s, status=%d", r.UserID, r.Method, r.Path, r.Status))
}

func (s *LogSink) Fault(r FaultRecord) {
	fields := logrus.Fields{
		"request_id": r.RequestID,
		"method":     r.Method,
		"path":       r.Path,
		"fault":      r.Fault,
		"panic":      r.Panic,
	}
	if r.Stack != "" {
		fields["stack"] = r.Stack
	}
	s.Log.WithFields(fields).Error("unhandled fault")
}

// Recorder guarda os registros em memória. Usado nos testes.
type Recorder struct {
	mu         sync.Mutex
	timings    []TimingRecord
	activities []ActivityRecord
	faults     []FaultRecord
}

func (r *Recorder) Timing(rec TimingRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings = append(r.timings, rec)
}

func (r *Recorder) Activity(rec ActivityRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = append(r.activities, rec)
}

func (r *Recorder) Fault(rec FaultRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = append(r.faults, rec)
}

func (r *Recorder) Timings() []TimingRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TimingRecord(nil), r.timings...)
}

func (r *Recorder) Activities() []ActivityRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ActivityRecord(nil), r.activities...)
}

func (r *Recorder) Faults() []FaultRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FaultRecord(nil), r.faults...)
}
