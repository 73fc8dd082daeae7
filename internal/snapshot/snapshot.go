// Package snapshot models an accepted or candidate snapshot: its identity,
// metadata header, contents, and the on-disk encoding used by file snapshots
// and pending artifacts.
package snapshot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is the header block stored above the `---` separator of a
// snapshot file. Field order here is the serialized key order.
type Metadata struct {
	SourceFile    string         `yaml:"source,omitempty" json:"source,omitempty"`
	AssertionLine uint32         `yaml:"assertion_line,omitempty" json:"assertion_line,omitempty"`
	Description   string         `yaml:"description,omitempty" json:"description,omitempty"`
	Expression    string         `yaml:"expression,omitempty" json:"expression,omitempty"`
	Info          map[string]any `yaml:"info,omitempty" json:"info,omitempty"`
	InputFile     string         `yaml:"input_file,omitempty" json:"input_file,omitempty"`
	SnapshotKind  string         `yaml:"snapshot_kind,omitempty" json:"snapshot_kind,omitempty"`
	Extension     string         `yaml:"extension,omitempty" json:"extension,omitempty"`
}

// TrimForPersistence drops fields that are only meaningful during the run
// that produced the snapshot. Accepted snapshot files never carry the
// assertion line; it would churn on every unrelated edit above the call.
func (m Metadata) TrimForPersistence() Metadata {
	m.AssertionLine = 0
	return m
}

// Snapshot is one logical snapshot: identity, header, payload.
type Snapshot struct {
	ModuleName   string
	SnapshotName string
	Metadata     Metadata
	Contents     Contents
}

// Text returns the textual contents, or ("", false) for binary snapshots.
func (s *Snapshot) Text() (string, bool) {
	t, ok := s.Contents.(TextContents)
	if !ok {
		return "", false
	}
	return t.String(), true
}

// ContentsMatch applies the default comparison against another snapshot.
func (s *Snapshot) ContentsMatch(other *Snapshot) bool {
	switch a := s.Contents.(type) {
	case TextContents:
		b, ok := other.Contents.(TextContents)
		return ok && a.Matches(b)
	case BinaryContents:
		b, ok := other.Contents.(BinaryContents)
		return ok && a.Matches(b)
	}
	return false
}

// ContentsMatchFully applies the byte-exact comparison.
func (s *Snapshot) ContentsMatchFully(other *Snapshot) bool {
	switch a := s.Contents.(type) {
	case TextContents:
		b, ok := other.Contents.(TextContents)
		return ok && a.MatchesFully(b)
	case BinaryContents:
		b, ok := other.Contents.(BinaryContents)
		return ok && a.Matches(b)
	}
	return false
}

// legacyKeys maps the capitalized header keys of the pre-YAML snapshot
// format onto current metadata fields.
var legacyKeys = map[string]bool{
	"Source":     true,
	"Expression": true,
	"Created":    true,
	"Creator":    true,
}

// ParseError reports a snapshot file that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing snapshot %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads a snapshot file. Both the current YAML header and the legacy
// key-value header are accepted; the second return value reports whether the
// legacy form was seen, so callers can log a deprecation warning.
func Load(path string) (*Snapshot, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var header []string
	sawSeparator := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "---" {
			sawSeparator = true
			break
		}
		header = append(header, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, false, &ParseError{Path: path, Err: err}
	}
	if !sawSeparator {
		return nil, false, &ParseError{Path: path, Err: fmt.Errorf("missing --- separator")}
	}

	var body strings.Builder
	first := true
	for scanner.Scan() {
		if !first {
			body.WriteByte('\n')
		}
		first = false
		body.WriteString(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, &ParseError{Path: path, Err: err}
	}

	meta, legacy, err := parseHeader(header)
	if err != nil {
		return nil, false, &ParseError{Path: path, Err: err}
	}

	module, name := NamesOfPath(path)
	snap := &Snapshot{
		ModuleName:   module,
		SnapshotName: name,
		Metadata:     meta,
	}
	if meta.SnapshotKind == "binary" {
		data, err := os.ReadFile(binaryPathFor(path, meta.Extension))
		if err != nil {
			return nil, false, &ParseError{Path: path, Err: err}
		}
		snap.Contents = BinaryContents{Extension: meta.Extension, Data: data}
	} else {
		snap.Contents = TextContents{kind: KindFile, text: strings.TrimRight(body.String(), "\n")}
	}
	return snap, legacy, nil
}

func parseHeader(lines []string) (Metadata, bool, error) {
	text := strings.Join(lines, "\n")
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return Metadata{}, false, err
	}
	legacy := false
	for key := range raw {
		if legacyKeys[key] {
			legacy = true
			break
		}
	}
	var meta Metadata
	if legacy {
		for key, node := range raw {
			switch key {
			case "Source":
				meta.SourceFile = node.Value
			case "Expression":
				meta.Expression = node.Value
			}
		}
		return meta, true, nil
	}
	if err := yaml.Unmarshal([]byte(text), &meta); err != nil {
		return Metadata{}, false, err
	}
	return meta, false, nil
}

// Serialize renders the snapshot in the current on-disk format: YAML header,
// `---`, contents, exactly one trailing newline. Loading a legacy snapshot
// and serializing it again silently upgrades the header.
func (s *Snapshot) Serialize() (string, error) {
	return s.serialize(s.Metadata)
}

// SerializeForPersistence is Serialize with run-scoped metadata dropped.
func (s *Snapshot) SerializeForPersistence() (string, error) {
	return s.serialize(s.Metadata.TrimForPersistence())
}

func (s *Snapshot) serialize(meta Metadata) (string, error) {
	header, err := yaml.Marshal(meta)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Write(header)
	b.WriteString("---\n")
	if text, ok := s.Text(); ok {
		b.WriteString(text)
	}
	b.WriteString("\n")
	return b.String(), nil
}

// Save writes the snapshot to path in the accepted-state encoding, creating
// parent directories as needed. Binary payloads go to the sidecar file.
func (s *Snapshot) Save(path string) error {
	return s.saveAs(path, false)
}

// SaveNew writes the pending encoding to path (conventionally `<path>.new`),
// keeping the assertion line so review tooling can jump to the call site.
func (s *Snapshot) SaveNew(path string) error {
	return s.saveAs(path, true)
}

func (s *Snapshot) saveAs(path string, pending bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	meta := s.Metadata
	if !pending {
		meta = meta.TrimForPersistence()
	}
	serialized, err := s.serialize(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(serialized), 0o644); err != nil {
		return err
	}
	if bin, ok := s.Contents.(BinaryContents); ok {
		return os.WriteFile(binaryPathFor(path, bin.Extension), bin.Data, 0o644)
	}
	return nil
}

func binaryPathFor(snapPath, extension string) string {
	return snapPath + "." + extension
}

// NamesOfPath derives (module, snapshot name) from a snapshot file path.
// File snapshot names follow `<module>__<name>.snap`; a basename without the
// separator is all snapshot name.
func NamesOfPath(path string) (string, string) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".new")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if module, name, ok := strings.Cut(base, "__"); ok {
		return module, name
	}
	return "", base
}

// FileName renders the snapshot's file basename, without extension.
func (s *Snapshot) FileName() string {
	if s.ModuleName == "" {
		return s.SnapshotName
	}
	return s.ModuleName + "__" + s.SnapshotName
}
