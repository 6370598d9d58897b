package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeRubric(t *testing.T) string {
	t.Helper()
	lines := []string{
		"כללי",
		"יש לכתוב בעט בלבד",
		"שאלה 1 – מערכים",
		"סעיף א – 20%",
		"אתחול נכון – 5%",
		"הורדות:",
		"שגיאת חישוב – להוריד 3%",
	}
	path := filepath.Join(t.TempDir(), "rubric.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseJSON(t *testing.T) {
	output, err := execute(t, "parse", writeRubric(t), "--format", "json", "--exam", "12")
	require.NoError(t, err)

	var decoded report
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))
	require.Equal(t, uint(12), decoded.ExamID)
	require.Equal(t, "rubric.txt", decoded.Source)
	require.Len(t, decoded.Metrics, 5)
	require.Equal(t, "GeneralPenalty", decoded.Metrics[0].ScoreType)
	require.Empty(t, decoded.Dropped)
}

func TestParseYAML(t *testing.T) {
	output, err := execute(t, "parse", writeRubric(t), "-f", "yaml")
	require.NoError(t, err)

	var decoded report
	require.NoError(t, yaml.Unmarshal([]byte(output), &decoded))
	require.Equal(t, uint(1), decoded.ExamID)
	require.Len(t, decoded.Metrics, 5)
	require.Equal(t, 1, decoded.Questions)
}

func TestParseTable(t *testing.T) {
	output, err := execute(t, "parse", writeRubric(t))
	require.NoError(t, err)
	require.Contains(t, output, "QUESTION")
	require.Contains(t, output, "מערכים")
	require.Contains(t, output, "5 metrics")
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := execute(t, "parse", writeRubric(t), "--format", "xml")
	require.Error(t, err)

	_, err = execute(t, "parse", filepath.Join(t.TempDir(), "missing.docx"))
	require.Error(t, err)

	_, err = execute(t, "parse")
	require.Error(t, err)
}
