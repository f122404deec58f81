package archive

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"snowball/internal/model"
)

const metaFileName = "meta.yml"

// metaSpan is one covered half-open range in meta.yml, RFC3339.
type metaSpan struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// symbolMeta is the per-symbol metadata record stored next to the
// parquet partitions.
type symbolMeta struct {
	Symbol      string     `yaml:"symbol"`
	LastUpdated string     `yaml:"last_updated"`
	LastBar     string     `yaml:"last_bar,omitempty"`
	Coverage    []metaSpan `yaml:"coverage,omitempty"`
}

// loadMeta reads a symbol's meta.yml. Returns a zero meta if the file
// doesn't exist yet.
func loadMeta(dir string) (*symbolMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &symbolMeta{}, nil
		}
		return nil, err
	}
	var meta symbolMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// saveMeta writes meta.yml via a temp file and rename so a crash never
// leaves a truncated record.
func saveMeta(dir string, meta *symbolMeta) error {
	meta.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, metaFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, metaFileName))
}

func (m *symbolMeta) coverage() []model.Interval {
	out := make([]model.Interval, 0, len(m.Coverage))
	for _, s := range m.Coverage {
		start, err1 := time.Parse(time.RFC3339, s.Start)
		end, err2 := time.Parse(time.RFC3339, s.End)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, model.Interval{Start: start, End: end})
	}
	return out
}

func (m *symbolMeta) setCoverage(ivs []model.Interval) {
	m.Coverage = m.Coverage[:0]
	for _, iv := range ivs {
		m.Coverage = append(m.Coverage, metaSpan{
			Start: iv.Start.UTC().Format(time.RFC3339),
			End:   iv.End.UTC().Format(time.RFC3339),
		})
	}
}

func (m *symbolMeta) lastBar() (time.Time, bool) {
	if m.LastBar == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, m.LastBar)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (m *symbolMeta) setLastBar(t time.Time) {
	if existing, ok := m.lastBar(); ok && existing.After(t) {
		return
	}
	m.LastBar = t.UTC().Format(time.RFC3339)
}
