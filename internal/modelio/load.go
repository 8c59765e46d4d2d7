package modelio

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"paravec/internal/embeddings"
	"paravec/internal/learning"
	"paravec/internal/paravec"
	"paravec/internal/tokenizer"
	"paravec/internal/vocab"
)

const maxLine = 64 << 20

// Load reads the files a manifest references into a validated store.
func Load(m *Manifest) (*embeddings.Store, error) {
	vecs, err := readVectors(m.Resolve(m.Vectors), m.Dimensions)
	if err != nil {
		return nil, err
	}

	v := vocab.NewCache()
	if m.Vocabulary != "" {
		if err := readVocabulary(m.Resolve(m.Vocabulary), v); err != nil {
			return nil, err
		}
	} else {
		// Without counts, keep word2vec's frequency order.
		for i, tok := range vecs.tokens {
			v.Add(tok, float64(len(vecs.tokens)-i))
		}
	}
	for _, tok := range m.Labels {
		if err := v.SetLabel(tok, true); err != nil {
			return nil, fmt.Errorf("manifest label: %w", err)
		}
	}

	syn0, err := vecs.ordered(v)
	if err != nil {
		return nil, err
	}
	table, err := embeddings.NewTable(m.Dimensions, syn0)
	if err != nil {
		return nil, err
	}

	if m.Output != "" {
		out, rows, err := readMatrix(m.Resolve(m.Output), m.Dimensions)
		if err != nil {
			return nil, err
		}
		switch m.Scoring {
		case learning.ScoringHierarchical:
			v.BuildHuffman()
			err = table.WithHierarchicalSoftmax(out)
		default:
			err = table.WithNegativeSampling(out)
		}
		if err != nil {
			return nil, fmt.Errorf("output weights (%d rows): %w", rows, err)
		}
	}
	return embeddings.NewStore(v, table)
}

// Open loads the manifest at path into a ready model: tokenizer configured
// from the manifest's stop words and labels extracted.
func Open(path string, log *slog.Logger) (*paravec.Model, *Manifest, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, nil, err
	}
	store, err := Load(m)
	if err != nil {
		return nil, nil, fmt.Errorf("load model %s: %w", path, err)
	}
	model, err := paravec.New(store, m.ModelConfig(),
		paravec.WithLogger(log),
		paravec.WithTokenizer(tokenizer.New(m.TokenizerOptions())),
	)
	if err != nil {
		return nil, nil, err
	}
	model.CompleteTraining()
	if log != nil {
		log.Info("model loaded",
			"manifest", path,
			"rows", store.RowCount(),
			"dimensions", store.Dimensionality(),
			"scoring", m.Scoring,
			"labels", len(model.Labels()))
	}
	return model, m, nil
}

type vectorFile struct {
	tokens []string
	rows   map[string][]float32
	dim    int
}

func (f *vectorFile) ordered(v vocab.Vocabulary) ([]float32, error) {
	entries := v.Entries()
	if len(entries) != len(f.tokens) {
		return nil, fmt.Errorf("vocabulary has %d entries, vectors file has %d: %w", len(entries), len(f.tokens), embeddings.ErrShape)
	}
	out := make([]float32, 0, len(entries)*f.dim)
	for _, e := range entries {
		row, ok := f.rows[e.Token]
		if !ok {
			return nil, fmt.Errorf("no vector for %q: %w", e.Token, vocab.ErrTokenNotFound)
		}
		out = append(out, row...)
	}
	return out, nil
}

// readVectors parses the word2vec text format: a "rows dim" header then one
// "token v1 .. vD" line per row.
func readVectors(path string, dim int) (*vectorFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}
	defer f.Close()
	return parseVectors(f, dim)
}

func parseVectors(r io.Reader, dim int) (*vectorFile, error) {
	sc := newScanner(r)
	rows, err := readHeader(sc, dim)
	if err != nil {
		return nil, fmt.Errorf("vectors: %w", err)
	}
	vf := &vectorFile{tokens: make([]string, 0, rows), rows: make(map[string][]float32, rows), dim: dim}
	line := 1
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != dim+1 {
			return nil, fmt.Errorf("vectors line %d: %d values, want %d: %w", line, len(fields)-1, dim, embeddings.ErrShape)
		}
		tok := fields[0]
		if _, dup := vf.rows[tok]; dup {
			return nil, fmt.Errorf("vectors line %d: duplicate token %q", line, tok)
		}
		row, err := parseFloats(fields[1:])
		if err != nil {
			return nil, fmt.Errorf("vectors line %d: %w", line, err)
		}
		vf.tokens = append(vf.tokens, tok)
		vf.rows[tok] = row
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	if len(vf.tokens) != rows {
		return nil, fmt.Errorf("vectors header promises %d rows, found %d: %w", rows, len(vf.tokens), embeddings.ErrShape)
	}
	return vf, nil
}

// readVocabulary parses "token<TAB>count[<TAB>label]" lines.
func readVocabulary(path string, v *vocab.Cache) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()
	return parseVocabulary(f, v)
}

func parseVocabulary(r io.Reader, v *vocab.Cache) error {
	sc := newScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, "\t")
		if len(parts) < 2 || len(parts) > 3 {
			return fmt.Errorf("vocabulary line %d: want token<TAB>count[<TAB>label]", line)
		}
		count, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return fmt.Errorf("vocabulary line %d: count: %w", line, err)
		}
		if v.Contains(parts[0]) {
			return fmt.Errorf("vocabulary line %d: duplicate token %q", line, parts[0])
		}
		v.Add(parts[0], count)
		if len(parts) == 3 && parts[2] != "" {
			if err := v.SetLabelValue(parts[0], parts[2]); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

// readMatrix parses a "rows dim" header then rows*dim whitespace separated values.
func readMatrix(path string, dim int) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open output weights: %w", err)
	}
	defer f.Close()
	return parseMatrix(f, dim)
}

func parseMatrix(r io.Reader, dim int) ([]float32, int, error) {
	sc := newScanner(r)
	rows, err := readHeader(sc, dim)
	if err != nil {
		return nil, 0, fmt.Errorf("output weights: %w", err)
	}
	out := make([]float32, 0, rows*dim)
	for sc.Scan() {
		vals, err := parseFloats(strings.Fields(sc.Text()))
		if err != nil {
			return nil, 0, fmt.Errorf("output weights: %w", err)
		}
		out = append(out, vals...)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read output weights: %w", err)
	}
	if len(out) != rows*dim {
		return nil, 0, fmt.Errorf("output weights: %d values for %dx%d: %w", len(out), rows, dim, embeddings.ErrShape)
	}
	return out, rows, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return sc
}

func readHeader(sc *bufio.Scanner, dim int) (int, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("missing header: %w", embeddings.ErrShape)
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != 2 {
		return 0, fmt.Errorf("header %q: want \"rows dim\": %w", sc.Text(), embeddings.ErrShape)
	}
	rows, err := strconv.Atoi(fields[0])
	if err != nil || rows < 0 {
		return 0, fmt.Errorf("header rows %q: %w", fields[0], embeddings.ErrShape)
	}
	d, err := strconv.Atoi(fields[1])
	if err != nil || d != dim {
		return 0, fmt.Errorf("header dimension %q, manifest says %d: %w", fields[1], dim, embeddings.ErrShape)
	}
	return rows, nil
}

func parseFloats(fields []string) ([]float32, error) {
	out := make([]float32, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(x)
	}
	return out, nil
}
