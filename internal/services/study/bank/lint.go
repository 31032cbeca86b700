// Package bank validates study item-bank documents.
//
// The linter runs offline against authored JSON, not on the request path.
// It reports schema problems (missing required fields) and business-rule
// violations (duplicate question ids, incomplete construct coverage, answer
// keys absent from choices, empty explanations).
package bank

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Required constructs every testlet must cover.
var requiredConstructs = []string{"development", "behaviour", "assessment", "mitigation"}

// Choice is one answer option for a question.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is one authored item, either inside a testlet or a diagnostic.
type Question struct {
	ID        string   `json:"id"`
	Construct string   `json:"construct"`
	Stem      string   `json:"stem"`
	Choices   []Choice `json:"choices"`
	Key       string   `json:"key"`
	Explain   string   `json:"explain"`
}

// Testlet groups the questions shown for one item type.
type Testlet struct {
	APType string     `json:"ap_type"`
	Label  string     `json:"label"`
	Items  []Question `json:"items"`
}

// Bank is a complete item bank document.
type Bank struct {
	SchemaVersion string     `json:"schema_version"`
	Testlets      []Testlet  `json:"testlets"`
	Diagnostics   []Question `json:"diagnostics"`
}

// Summary counts the entities in a linted bank.
type Summary struct {
	Testlets    int
	Questions   int
	Diagnostics int
}

// Lint parses and validates one item-bank document. It returns every finding
// rather than stopping at the first, so authors can fix a bank in one pass.
// A non-nil error means the document could not be parsed at all.
func Lint(data []byte) ([]string, Summary, error) {
	var bank Bank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, Summary{}, fmt.Errorf("parse bank: %w", err)
	}

	var findings []string
	findings = append(findings, lintSchema(bank)...)
	findings = append(findings, lintRules(bank)...)

	summary := Summary{
		Testlets:    len(bank.Testlets),
		Diagnostics: len(bank.Diagnostics),
	}
	for _, testlet := range bank.Testlets {
		summary.Questions += len(testlet.Items)
	}
	return findings, summary, nil
}

func lintSchema(bank Bank) []string {
	var findings []string
	if strings.TrimSpace(bank.SchemaVersion) == "" {
		findings = append(findings, "schema_version: required field missing")
	}
	for i, testlet := range bank.Testlets {
		prefix := fmt.Sprintf("testlets[%d]", i)
		if strings.TrimSpace(testlet.APType) == "" {
			findings = append(findings, prefix+".ap_type: required field missing")
		}
		if strings.TrimSpace(testlet.Label) == "" {
			findings = append(findings, prefix+".label: required field missing")
		}
		if len(testlet.Items) == 0 {
			findings = append(findings, prefix+".items: required field missing")
		}
		for j, item := range testlet.Items {
			findings = append(findings, lintQuestionSchema(item, fmt.Sprintf("%s.items[%d]", prefix, j))...)
		}
	}
	for i, diagnostic := range bank.Diagnostics {
		findings = append(findings, lintQuestionSchema(diagnostic, fmt.Sprintf("diagnostics[%d]", i))...)
	}
	return findings
}

func lintQuestionSchema(question Question, prefix string) []string {
	var findings []string
	if strings.TrimSpace(question.ID) == "" {
		findings = append(findings, prefix+".id: required field missing")
	}
	if strings.TrimSpace(question.Construct) == "" {
		findings = append(findings, prefix+".construct: required field missing")
	}
	if strings.TrimSpace(question.Stem) == "" {
		findings = append(findings, prefix+".stem: required field missing")
	}
	if len(question.Choices) == 0 {
		findings = append(findings, prefix+".choices: required field missing")
	}
	if strings.TrimSpace(question.Key) == "" {
		findings = append(findings, prefix+".key: required field missing")
	}
	return findings
}

func lintRules(bank Bank) []string {
	var findings []string

	seen := map[string]bool{}
	duplicates := map[string]bool{}
	var questions []Question
	for _, testlet := range bank.Testlets {
		questions = append(questions, testlet.Items...)
	}
	questions = append(questions, bank.Diagnostics...)
	for _, question := range questions {
		if question.ID == "" {
			continue
		}
		if seen[question.ID] {
			duplicates[question.ID] = true
		}
		seen[question.ID] = true
	}
	for id := range duplicates {
		findings = append(findings, fmt.Sprintf("duplicate question id %q", id))
	}

	for _, testlet := range bank.Testlets {
		covered := map[string]bool{}
		for _, item := range testlet.Items {
			covered[item.Construct] = true
		}
		var missing []string
		for _, construct := range requiredConstructs {
			if !covered[construct] {
				missing = append(missing, construct)
			}
		}
		if len(missing) > 0 {
			findings = append(findings, fmt.Sprintf("testlet %q missing constructs: %s", testlet.APType, strings.Join(missing, ", ")))
		}
	}

	for _, question := range questions {
		if len(question.Choices) > 0 && question.Key != "" {
			found := false
			for _, choice := range question.Choices {
				if choice.Value == question.Key {
					found = true
					break
				}
			}
			if !found {
				findings = append(findings, fmt.Sprintf("question %q key %q not found in choices", question.ID, question.Key))
			}
		}
		if strings.TrimSpace(question.Explain) == "" {
			findings = append(findings, fmt.Sprintf("question %q has empty or missing explanation", question.ID))
		}
	}

	return findings
}
