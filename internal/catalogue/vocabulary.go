// Package catalogue holds the static coaching data consulted by the router:
// technical drills, batting exercises, shots and fundamentals.
package catalogue

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/vocabulary.yaml
var vocabularyYAML []byte

// KeywordCategory maps a keyword to a technical category id.
type KeywordCategory struct {
	Keyword  string `yaml:"keyword"`
	Category string `yaml:"category"`
}

// KeywordGoal maps a keyword to an exercise goal.
type KeywordGoal struct {
	Keyword string `yaml:"keyword"`
	Goal    string `yaml:"goal"`
}

// ShotAlias maps a phrase to a shot key.
type ShotAlias struct {
	Alias string `yaml:"alias"`
	Shot  string `yaml:"shot"`
}

// Vocab is the set of word lists used for detection. Lists that are scanned
// first-match-wins keep their file order.
type Vocab struct {
	ExerciseWords            []string          `yaml:"exercise_words"`
	SplitKeys                []string          `yaml:"split_keys"`
	SearchStopwords          []string          `yaml:"search_stopwords"`
	GeneralKnowledgeTriggers []string          `yaml:"general_knowledge_triggers"`
	DrillWords               []string          `yaml:"drill_words"`
	CategoryKeywords         []KeywordCategory `yaml:"category_keywords"`
	ExerciseGoals            []KeywordGoal     `yaml:"exercise_goals"`
	ShotAliases              []ShotAlias       `yaml:"shot_aliases"`
	UnknownHelp              string            `yaml:"unknown_help"`
}

var defaultVocab = mustParseVocabulary(vocabularyYAML)

// Vocabulary returns the embedded vocabulary. Callers must not modify it.
func Vocabulary() *Vocab {
	return defaultVocab
}

// ParseVocabulary decodes a vocabulary document.
func ParseVocabulary(data []byte) (*Vocab, error) {
	var v Vocab
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	if len(v.SplitKeys) == 0 || v.UnknownHelp == "" {
		return nil, fmt.Errorf("vocabulary is missing split_keys or unknown_help")
	}
	for i := range v.CategoryKeywords {
		v.CategoryKeywords[i].Keyword = strings.ToLower(v.CategoryKeywords[i].Keyword)
		v.CategoryKeywords[i].Category = strings.ToUpper(v.CategoryKeywords[i].Category)
	}
	return &v, nil
}

func mustParseVocabulary(data []byte) *Vocab {
	v, err := ParseVocabulary(data)
	if err != nil {
		panic(err)
	}
	return v
}

// ContainsAny reports whether text contains any of words as a substring.
func ContainsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
