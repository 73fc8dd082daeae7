package snapshot

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var pendingJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// PendingInline is one record of a pending inline-snapshot batch file. A
// record with neither New nor Old marks the line as having passed in this
// run, which retires any stale pending update for that line.
type PendingInline struct {
	RunID string
	Line  uint32
	New   *Snapshot
	Old   *Snapshot
}

// IsPassedMarker reports whether this record only retires older entries.
func (p *PendingInline) IsPassedMarker() bool {
	return p.New == nil && p.Old == nil
}

type snapshotRecord struct {
	ModuleName   string   `json:"module_name,omitempty"`
	SnapshotName string   `json:"snapshot_name,omitempty"`
	Metadata     Metadata `json:"metadata"`
	Snapshot     string   `json:"snapshot"`
}

type pendingRecord struct {
	RunID string          `json:"run_id"`
	Line  uint32          `json:"line"`
	New   *snapshotRecord `json:"new"`
	Old   *snapshotRecord `json:"old"`
}

func toRecord(s *Snapshot) *snapshotRecord {
	if s == nil {
		return nil
	}
	text, _ := s.Text()
	return &snapshotRecord{
		ModuleName:   s.ModuleName,
		SnapshotName: s.SnapshotName,
		Metadata:     s.Metadata,
		Snapshot:     text,
	}
}

func fromRecord(r *snapshotRecord) *Snapshot {
	if r == nil {
		return nil
	}
	return &Snapshot{
		ModuleName:   r.ModuleName,
		SnapshotName: r.SnapshotName,
		Metadata:     r.Metadata,
		Contents:     TextContents{kind: KindInline, text: r.Snapshot},
	}
}

// Append adds this record as one JSON line at the end of the batch file.
// Repeated runs of the same test append rather than rewrite; LoadBatch
// resolves the duplication by keeping only the newest run.
func (p *PendingInline) Append(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	line, err := pendingJSON.Marshal(pendingRecord{
		RunID: p.RunID,
		Line:  p.Line,
		New:   toRecord(p.New),
		Old:   toRecord(p.Old),
	})
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

// LoadBatch reads a pending inline batch and returns the live records: only
// those stamped with the most recent run id, minus passed markers and the
// lines they retire. A batch left with no live records is deleted.
func LoadBatch(path string) ([]*PendingInline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var all []*PendingInline
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec pendingRecord
		if err := pendingJSON.UnmarshalFromString(line, &rec); err != nil {
			f.Close()
			return nil, &ParseError{Path: path, Err: err}
		}
		all = append(all, &PendingInline{
			RunID: rec.RunID,
			Line:  rec.Line,
			New:   fromRecord(rec.New),
			Old:   fromRecord(rec.Old),
		})
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return nil, &ParseError{Path: path, Err: err}
	}
	f.Close()

	if len(all) == 0 {
		_ = os.Remove(path)
		return nil, nil
	}
	latest := all[len(all)-1].RunID
	passed := map[uint32]bool{}
	for _, rec := range all {
		if rec.RunID == latest && rec.IsPassedMarker() {
			passed[rec.Line] = true
		}
	}
	var live []*PendingInline
	for _, rec := range all {
		if rec.RunID != latest || rec.IsPassedMarker() || passed[rec.Line] {
			continue
		}
		live = append(live, rec)
	}
	if len(live) == 0 {
		_ = os.Remove(path)
		return nil, nil
	}
	return live, nil
}

// SaveBatch rewrites the batch file with exactly the given records, or
// removes it when none remain.
func SaveBatch(path string, records []*PendingInline) error {
	if len(records) == 0 {
		err := os.Remove(path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var b strings.Builder
	for _, p := range records {
		line, err := pendingJSON.Marshal(pendingRecord{
			RunID: p.RunID,
			Line:  p.Line,
			New:   toRecord(p.New),
			Old:   toRecord(p.Old),
		})
		if err != nil {
			return err
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
