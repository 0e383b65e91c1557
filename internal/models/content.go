package models

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Content is the generated payload of a StudyResult. The concrete type always matches
// the result's Feature:
//
//	*SummaryContent    FeatureSummary
//	*QuizContent       FeatureQuiz
//	*TipsContent       FeatureTips
//	*CheatSheetContent FeatureCheatSheet
type Content interface {
	Feature() Feature
	// Title is the heading the model gave the material, empty for quizzes.
	Title() string
	isContent()
}

type Chapter struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type SummaryContent struct {
	Heading     string    `json:"title"`
	Chapters    []Chapter `json:"chapters"`
	KeyConcepts []string  `json:"keyConcepts"`
}

func (*SummaryContent) Feature() Feature { return FeatureSummary }
func (c *SummaryContent) Title() string  { return c.Heading }
func (*SummaryContent) isContent()       {}

type QuizQuestion struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Question    string       `json:"question"`
	Options     []string     `json:"options,omitempty"`
	Answer      string       `json:"answer"`
	Explanation string       `json:"explanation"`
}

type QuizContent struct {
	Questions  []QuizQuestion `json:"questions"`
	Difficulty QuizDifficulty `json:"difficulty,omitempty"`
}

func (*QuizContent) Feature() Feature { return FeatureQuiz }
func (*QuizContent) Title() string    { return "" }
func (*QuizContent) isContent()       {}

type Mnemonic struct {
	Concept string `json:"concept"`
	Trick   string `json:"trick"`
}

type TipsContent struct {
	Heading             string     `json:"title"`
	Mnemonics           []Mnemonic `json:"mnemonics"`
	Strategies          []string   `json:"strategies"`
	Pitfalls            []string   `json:"pitfalls"`
	TimeManagement      []string   `json:"timeManagement"`
	ExamTips            []string   `json:"examTips"`
	RealLifeConnections []string   `json:"realLifeConnections"`
}

func (*TipsContent) Feature() Feature { return FeatureTips }
func (c *TipsContent) Title() string  { return c.Heading }
func (*TipsContent) isContent()       {}

type CheatSheetSection struct {
	Label string   `json:"label"`
	Items []string `json:"items"`
}

type CheatSheetContent struct {
	Heading  string              `json:"title"`
	Sections []CheatSheetSection `json:"sections"`
	Formulas []string            `json:"formulas,omitempty"`
}

func (*CheatSheetContent) Feature() Feature { return FeatureCheatSheet }
func (c *CheatSheetContent) Title() string  { return c.Heading }
func (*CheatSheetContent) isContent()       {}

// CloneContent returns a deep copy of c.
func CloneContent(c Content) Content {
	switch v := c.(type) {
	case *SummaryContent:
		if v == nil {
			return v
		}
		out := *v
		out.Chapters = slices.Clone(v.Chapters)
		out.KeyConcepts = slices.Clone(v.KeyConcepts)
		return &out
	case *QuizContent:
		if v == nil {
			return v
		}
		out := *v
		if v.Questions != nil {
			out.Questions = make([]QuizQuestion, len(v.Questions))
			for i, q := range v.Questions {
				q.Options = slices.Clone(q.Options)
				out.Questions[i] = q
			}
		}
		return &out
	case *TipsContent:
		if v == nil {
			return v
		}
		out := *v
		out.Mnemonics = slices.Clone(v.Mnemonics)
		out.Strategies = slices.Clone(v.Strategies)
		out.Pitfalls = slices.Clone(v.Pitfalls)
		out.TimeManagement = slices.Clone(v.TimeManagement)
		out.ExamTips = slices.Clone(v.ExamTips)
		out.RealLifeConnections = slices.Clone(v.RealLifeConnections)
		return &out
	case *CheatSheetContent:
		if v == nil {
			return v
		}
		out := *v
		if v.Sections != nil {
			out.Sections = make([]CheatSheetSection, len(v.Sections))
			for i, sec := range v.Sections {
				sec.Items = slices.Clone(sec.Items)
				out.Sections[i] = sec
			}
		}
		out.Formulas = slices.Clone(v.Formulas)
		return &out
	default:
		return c
	}
}

// NewContent returns an empty value of the variant belonging to f.
func NewContent(f Feature) (Content, error) {
	switch f {
	case FeatureSummary:
		return &SummaryContent{}, nil
	case FeatureQuiz:
		return &QuizContent{}, nil
	case FeatureTips:
		return &TipsContent{}, nil
	case FeatureCheatSheet:
		return &CheatSheetContent{}, nil
	default:
		return nil, fmt.Errorf("unknown feature %q", f)
	}
}

// DecodeContent decodes a raw JSON document into the variant belonging to f.
func DecodeContent(f Feature, raw []byte) (Content, error) {
	c, err := NewContent(f)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode %s content: %w", f, err)
	}
	return c, nil
}
