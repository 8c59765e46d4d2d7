package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paravec/internal/config"
)

func writeModel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"model.yaml": `dimensions: 2
scoring: negative
seed: 3
iterations: 4
labels: [animal]
vocabulary: vocab.tsv
vectors: vectors.txt
output: output.txt
`,
		"vocab.tsv":   "cat\t5\ndog\t3\nanimal\t1\n",
		"vectors.txt": "3 2\ncat 1 0\ndog 0.9 0.1\nanimal 0.95 0.05\n",
		"output.txt":  "3 2\n0.5 -0.2\n0.1 0.4\n-0.3 0.2\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return filepath.Join(dir, "model.yaml")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(config.Config{DefaultTopN: 5})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInferCommand(t *testing.T) {
	model := writeModel(t)

	out, err := run(t, "infer", "--model", model, "the", "cat", "and", "the", "dog")
	require.NoError(t, err)
	var resp struct {
		Vector     []float32 `json:"vector"`
		Dimensions int       `json:"dimensions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Dimensions)
	assert.Len(t, resp.Vector, 2)

	again, err := run(t, "infer", "--model", model, "--tokens", "cat,dog")
	require.NoError(t, err)
	assert.Equal(t, out, again, "same tokens and seed give the same vector")

	_, err = run(t, "infer", "--model", model, "--iterations", "0", "cat")
	assert.Error(t, err)

	_, err = run(t, "infer", "--model", model, "zebra")
	assert.Error(t, err)
}

func TestLabelsCommand(t *testing.T) {
	model := writeModel(t)

	out, err := run(t, "labels", "--model", model, "-n", "1", "cat", "dog")
	require.NoError(t, err)
	var ranked []struct {
		Label string  `json:"label"`
		Score float32 `json:"score"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, "animal", ranked[0].Label)

	out, err = run(t, "labels", "--model", model, "zebra")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	assert.Empty(t, ranked)
}

func TestSimilarityCommand(t *testing.T) {
	model := writeModel(t)

	out, err := run(t, "similarity", "--model", model, "--label", "animal", "cat", "dog")
	require.NoError(t, err)
	var resp struct {
		Label      string  `json:"label"`
		Similarity float32 `json:"similarity"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.InDelta(t, 1.0, resp.Similarity, 0.01)

	out, err = run(t, "similarity", "--model", model, "cat")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "animal"`)

	_, err = run(t, "similarity", "--model", model)
	assert.Error(t, err, "at least one token is required")
}

func TestInspectCommand(t *testing.T) {
	model := writeModel(t)

	out, err := run(t, "inspect", "--model", model)
	require.NoError(t, err)
	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2, report.Dimensions)
	assert.Equal(t, "negative", report.Scoring)
	assert.Equal(t, 5, report.Window)
	assert.Equal(t, 20, report.RefineMargin)
	assert.Equal(t, 4, report.Iterations)
	assert.Equal(t, []string{"animal"}, report.Labels)
}

func TestMissingModel(t *testing.T) {
	_, err := run(t, "inspect", "--model", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
