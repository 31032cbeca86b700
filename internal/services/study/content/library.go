// Package content serves per-study JSON documents from a content directory.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/StanNowak/Surveys/internal/platform/errors"
)

// Document names accepted by Library.Document.
const (
	DocumentItemBank    = "item_bank"
	DocumentBackground  = "background"
	DocumentAPIntro     = "ap_intro"
	DocumentDiagnostics = "diagnostics"
)

// documentFiles maps public document names onto files inside a study
// directory. Requests outside this allowlist are rejected, so path segments
// from the URL never reach the filesystem.
var documentFiles = map[string]string{
	DocumentItemBank:    filepath.Join("content", "item_bank.json"),
	DocumentBackground:  filepath.Join("content", "background.json"),
	DocumentAPIntro:     filepath.Join("content", "ap_intro.json"),
	DocumentDiagnostics: filepath.Join("content", "diagnostics.json"),
}

const configFile = "config.json"

// Library reads study content from a root directory with one subdirectory
// per study.
type Library struct {
	root string
}

// NewLibrary creates a content library rooted at the given directory.
func NewLibrary(root string) (*Library, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("content root is required")
	}
	return &Library{root: filepath.Clean(root)}, nil
}

// Document returns one named JSON document for a study.
func (l *Library) Document(studyID, name string) ([]byte, error) {
	relPath, ok := documentFiles[name]
	if !ok {
		return nil, apperrors.New(apperrors.CodeContentUnknownDocument, fmt.Sprintf("unknown document %q", name))
	}
	return l.read(studyID, relPath)
}

// Config returns the study configuration document.
func (l *Library) Config(studyID string) ([]byte, error) {
	return l.read(studyID, configFile)
}

func (l *Library) read(studyID, relPath string) ([]byte, error) {
	if l == nil {
		return nil, fmt.Errorf("content library is not configured")
	}
	if err := validStudyID(studyID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(l.root, studyID, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.CodeContentUnknownStudy, fmt.Sprintf("no %s for study %q", relPath, studyID), err)
		}
		return nil, fmt.Errorf("read study content: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("study content %s is not valid JSON", relPath)
	}
	return data, nil
}

func validStudyID(studyID string) error {
	if strings.TrimSpace(studyID) == "" {
		return apperrors.New(apperrors.CodeContentUnknownStudy, "study id is required")
	}
	if strings.ContainsAny(studyID, `/\`) || strings.Contains(studyID, "..") {
		return apperrors.New(apperrors.CodeContentUnknownStudy, fmt.Sprintf("invalid study id %q", studyID))
	}
	return nil
}
