package gemini

import (
	"fmt"
	"strings"

	"studybuddy/internal/models"

	"github.com/google/generative-ai-go/genai"
)

// SystemInstruction calibrates tone and audience for every request.
const SystemInstruction = `Je bent StudyBuddy, een hyper-intelligente AI voor Nederlandse studenten (10-18 jaar).
Analyseer ALTIJD alle pagina's als één context.
Pas je taalgebruik aan op het niveau:
- Groep 7/8: Simpel, verhalend, focus op de basis.
- VMBO/HAVO: To-the-point, praktisch.
- VWO/HBO/WO: Academisch, diepgaand, kritisch.`

var toneLines = map[models.Personality]string{
	models.PersonalityHyped: "Je output is enthousiast, modern en gebruikt soms emoji's.",
	models.PersonalityChill: "Je output is relaxed en vriendelijk, zonder overdrijving.",
	models.PersonalityPro:   "Je output is zakelijk, helder en zonder emoji's.",
}

// Options personalizes a request.
type Options struct {
	Level         string
	Grade         string
	Difficulty    models.QuizDifficulty
	QuestionCount int
	Personality   models.Personality
}

func (o Options) withDefaults() Options {
	if o.Difficulty == "" {
		o.Difficulty = models.DefaultDifficulty
	}
	if o.QuestionCount <= 0 {
		o.QuestionCount = models.DefaultQuestionCount
	}
	if o.Personality == "" {
		o.Personality = models.PersonalityHyped
	}
	return o
}

// systemInstruction returns the fixed instruction plus the tone line for p.
func systemInstruction(p models.Personality) string {
	tone, ok := toneLines[p]
	if !ok {
		tone = toneLines[models.PersonalityHyped]
	}
	return SystemInstruction + "\n" + tone
}

func personalization(o Options) string {
	var b strings.Builder
	if o.Level != "" {
		fmt.Fprintf(&b, "\nDOELGROEP NIVEAU: %s", o.Level)
	}
	if o.Grade != "" {
		fmt.Fprintf(&b, "\nLEERJAAR: %s", o.Grade)
	}
	fmt.Fprintf(&b, "\nMOEILIJKHEIDSGRAAD: %s", o.Difficulty)
	return b.String()
}

// BuildPrompt returns the feature-specific instruction and the response schema the model
// must follow.
func BuildPrompt(feature models.Feature, opts Options) (string, *genai.Schema, error) {
	o := opts.withDefaults()
	p := personalization(o)

	switch feature {
	case models.FeatureSummary:
		prompt := "Maak een vette samenvatting van AL deze pagina's. Gebruik emoji's voor de sfeer.\n" +
			"Zorg dat elk hoofdstuk aan bod komt." + p
		return prompt, summarySchema(), nil

	case models.FeatureQuiz:
		prompt := fmt.Sprintf("Genereer een OVERHORING van precies %d vragen.%s\n", o.QuestionCount, p) +
			"GEBRUIK EEN MIX VAN:\n" +
			"- MCQ (Multiple Choice)\n" +
			"- OPEN (Open vragen)\n" +
			"- TRUE_FALSE (Waar/Niet waar)\n" +
			"- INVUL (Gebruik [?] voor het gat)\n" +
			"- MATCH (Koppel begrippen aan definities)\n" +
			"- ORDERING (Zet stappen of jaartallen in de juiste volgorde)\n\n" +
			fmt.Sprintf("Vraagtypes moeten passen bij de moeilijkheidsgraad %s.\n", o.Difficulty) +
			"Geef bij elke vraag een duidelijke uitleg (explanation)."
		return prompt, quizSchema(), nil

	case models.FeatureTips:
		prompt := "Genereer gepersonaliseerde studietips voor dit materiaal." + p + "\n" +
			"Lever een JSON met de volgende velden:\n" +
			"- mnemonics: array van objecten met {concept, trick} (ezelsbruggetjes)\n" +
			"- strategies: array van strings (hoe dit vak te leren)\n" +
			"- pitfalls: array van strings (veelgemaakte fouten in dit onderwerp)\n" +
			"- timeManagement: een advies per hoofdstuk/onderwerp hoe lang te leren\n" +
			"- examTips: specifieke tactieken voor de toets\n" +
			"- realLifeConnections: hoe pas je dit toe in de echte wereld?"
		return prompt, tipsSchema(), nil

	case models.FeatureCheatSheet:
		prompt := "Maak een compact leerbriefje van AL dit materiaal." + p + "\n" +
			"Voeg formules toe (formulas) als het materiaal die bevat."
		return prompt, cheatSheetSchema(), nil
	}
	return "", nil, fmt.Errorf("unsupported feature %q", feature)
}

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func strList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: str()}
}

func summarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": str(),
			"chapters": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":   str(),
						"content": str(),
					},
					Required: []string{"title", "content"},
				},
			},
			"keyConcepts": strList(),
		},
		Required: []string{"title", "chapters", "keyConcepts"},
	}
}

func quizSchema() *genai.Schema {
	types := make([]string, len(models.AllQuestionTypes))
	for i, t := range models.AllQuestionTypes {
		types[i] = string(t)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":       str(),
						"type":     {Type: genai.TypeString, Format: "enum", Enum: types},
						"question": str(),
						"options": {
							Type:        genai.TypeArray,
							Items:       str(),
							Description: "Gebruikt voor MCQ opties, MATCH items, of ORDERING elementen",
						},
						"answer": {
							Type:        genai.TypeString,
							Description: "Correct antwoord (voor MCQ) of de juiste volgorde/koppeling gescheiden door komma's",
						},
						"explanation": str(),
					},
					Required: []string{"id", "type", "question", "answer", "explanation"},
				},
			},
		},
		Required: []string{"questions"},
	}
}

func tipsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": str(),
			"mnemonics": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"concept": str(),
						"trick":   str(),
					},
					Required: []string{"concept", "trick"},
				},
			},
			"strategies":          strList(),
			"pitfalls":            strList(),
			"timeManagement":      strList(),
			"examTips":            strList(),
			"realLifeConnections": strList(),
		},
		Required: []string{"title", "mnemonics", "strategies", "pitfalls", "timeManagement", "examTips", "realLifeConnections"},
	}
}

func cheatSheetSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": str(),
			"sections": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"label": str(),
						"items": strList(),
					},
					Required: []string{"label", "items"},
				},
			},
			"formulas": strList(),
		},
		Required: []string{"title", "sections"},
	}
}
