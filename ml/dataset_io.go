package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	TextColumn  = "text"
	LabelColumn = "label"
)

// ReadComments parses a CSV with a header row. Missing text cells read as "";
// labels may be written as floats ("1.0") as pandas exports them.
func ReadComments(r io.Reader, textColumn, labelColumn string) ([]Comment, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCorpus
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	textIdx, labelIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case textColumn:
			textIdx = i
		case labelColumn:
			labelIdx = i
		}
	}
	if textIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("header %v lacks %q or %q", header, textColumn, labelColumn)
	}

	var comments []Comment
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if labelIdx >= len(record) || strings.TrimSpace(record[labelIdx]) == "" {
			continue
		}
		label, err := parseLabel(record[labelIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		text := ""
		if textIdx < len(record) {
			text = record[textIdx]
		}
		comments = append(comments, Comment{Text: text, Label: label})
	}
	if len(comments) == 0 {
		return nil, ErrEmptyCorpus
	}
	return comments, nil
}

func parseLabel(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid label %q", raw)
	}
	return int(f), nil
}

// LoadComments opens path and parses it with ReadComments.
func LoadComments(path, textColumn, labelColumn string) ([]Comment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	comments, err := ReadComments(f, textColumn, labelColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return comments, nil
}

// WriteComments emits a text,label CSV.
func WriteComments(w io.Writer, comments []Comment) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{TextColumn, LabelColumn}); err != nil {
		return err
	}
	for _, c := range comments {
		if err := writer.Write([]string{c.Text, strconv.Itoa(c.Label)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveComments writes comments to path with WriteComments.
func SaveComments(path string, comments []Comment) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteComments(f, comments); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
