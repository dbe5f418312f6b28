package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LoadModel reads a saved classifier of the given type.
func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case "logistic_regression", "":
		model := &LogisticRegression{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

// LoadVectorizer reads a vectorizer written by Save.
func LoadVectorizer(path string) (*TfidfVectorizer, error) {
	v := &TfidfVectorizer{}
	if err := v.Load(path); err != nil {
		return nil, err
	}
	return v, nil
}

// Save writes the fitted vectorizer as JSON.
func (v *TfidfVectorizer) Save(path string) error {
	if !v.Fitted() {
		return ErrNotFitted
	}
	return SaveJSON(path, v)
}

func (v *TfidfVectorizer) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded TfidfVectorizer
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if !loaded.Fitted() {
		return errors.New("invalid vectorizer payload")
	}
	for term, idx := range loaded.Vocabulary {
		if idx < 0 || idx >= len(loaded.IDF) {
			return fmt.Errorf("invalid vectorizer payload: term %q has index %d", term, idx)
		}
	}
	*v = loaded
	return nil
}

// SaveJSON writes v next to path and renames it into place, so readers never see a
// partially written file.
func SaveJSON(path string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
