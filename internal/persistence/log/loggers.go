package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"spawncycle.ai/internal/sim/spawncycle"
)

// JSONLZstdWriter appends JSON lines to hourly zstd files named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	// Moves are infrequent; push each one into a zstd block so a crash loses
	// at most the unterminated frame trailer.
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 16*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// MoveEntry is one audit line.
type MoveEntry struct {
	At     string `json:"at"`
	World  string `json:"world"`
	Reason string `json:"reason"`
	Mode   string `json:"mode"`
	Pos    [3]int `json:"pos"`

	SpiralRadius int `json:"spiral_radius"`
	SpiralAngle  int `json:"spiral_angle"`
	SquareLayer  int `json:"square_layer"`
	SquareStep   int `json:"square_step"`
}

func EntryFromMove(m spawncycle.Move) MoveEntry {
	return MoveEntry{
		At:           m.At.UTC().Format(time.RFC3339Nano),
		World:        m.Point.World,
		Reason:       m.Reason,
		Mode:         string(m.Mode),
		Pos:          m.Point.Pos.ToArray(),
		SpiralRadius: m.Spiral.Radius,
		SpiralAngle:  m.Spiral.Angle,
		SquareLayer:  m.Square.Ring,
		SquareStep:   m.Square.StepIndex,
	}
}

// MoveLogger writes applied spawn moves as compressed JSONL under
// <dataDir>/audit. It implements spawncycle.MoveSink.
type MoveLogger struct {
	w   *JSONLZstdWriter
	Err func(error)
}

func NewMoveLogger(dataDir string) *MoveLogger {
	return &MoveLogger{w: NewJSONLZstdWriter(AuditDir(dataDir), "moves")}
}

func AuditDir(dataDir string) string { return filepath.Join(dataDir, "audit") }

func (l *MoveLogger) RecordMove(m spawncycle.Move) {
	if err := l.w.Write(EntryFromMove(m)); err != nil && l.Err != nil {
		l.Err(err)
	}
}

func (l *MoveLogger) Close() error { return l.w.Close() }

// ReadMoves decodes every moves-*.jsonl.zst file in dir in name (hour) order.
// A truncated trailing frame from a live or crashed writer ends that file
// without error.
func ReadMoves(dir string) ([]MoveEntry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "moves-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var out []MoveEntry
	for _, p := range matches {
		entries, err := readMovesFile(p)
		if err != nil {
			return out, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, entries...)
	}
	return out, nil
}

func readMovesFile(path string) ([]MoveEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []MoveEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e MoveEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return out, err
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return out, err
	}
	return out, nil
}
