package question

import "strings"

// categoryQuestion is one fixed entry in the deterministic fallback table.
type categoryQuestion struct {
	qtype   string
	text    map[string]string   // language → question text
	options map[string][]string // language → options; nil means type defaults
}

// fallbackTable maps a normalized equipment-category keyword to its fixed
// question sequence, used when the completion provider fails or returns
// unusable output.
var fallbackTable = map[string][]categoryQuestion{
	"refrigerator": {
		{
			qtype: TypeLocation,
			text: map[string]string{
				"en": "Where in the refrigerator is the problem?",
				"es": "¿En qué parte del refrigerador está el problema?",
			},
			options: map[string][]string{
				"en": {"Top freezer", "Bottom freezer", "Main compartment", "Door seal", "Back panel", "Other / Not sure"},
				"es": {"Congelador superior", "Congelador inferior", "Compartimento principal", "Sello de la puerta", "Panel trasero", "Otro / No estoy seguro"},
			},
		},
		{
			qtype: TypeTiming,
			text: map[string]string{
				"en": "When did you first notice the problem?",
				"es": "¿Cuándo notó el problema por primera vez?",
			},
		},
	},
	"washer": {
		{
			qtype: TypeFunction,
			text: map[string]string{
				"en": "What does the washer do when you start a cycle?",
				"es": "¿Qué hace la lavadora al iniciar un ciclo?",
			},
			options: map[string][]string{
				"en": {"Does not start", "Fills but does not spin", "Spins but does not drain", "Stops mid-cycle", "Other / Not sure"},
				"es": {"No arranca", "Llena pero no centrifuga", "Centrifuga pero no desagua", "Se detiene a mitad de ciclo", "Otro / No estoy seguro"},
			},
		},
		{
			qtype: TypeSymptom,
			text: map[string]string{
				"en": "Have you noticed any leaks, noises or smells?",
				"es": "¿Ha notado fugas, ruidos u olores?",
			},
		},
	},
	"oven": {
		{
			qtype: TypeFunction,
			text: map[string]string{
				"en": "Which part of the oven is misbehaving?",
				"es": "¿Qué parte del horno está fallando?",
			},
			options: map[string][]string{
				"en": {"Does not heat", "Heats unevenly", "Overheats", "Controls unresponsive", "Door does not close", "Other / Not sure"},
				"es": {"No calienta", "Calienta de forma desigual", "Se sobrecalienta", "Controles no responden", "La puerta no cierra", "Otro / No estoy seguro"},
			},
		},
		{
			qtype: TypeTiming,
			text: map[string]string{
				"en": "When did the problem start?",
				"es": "¿Cuándo comenzó el problema?",
			},
		},
	},
	"dishwasher": {
		{
			qtype: TypeSymptom,
			text: map[string]string{
				"en": "What do you observe when the dishwasher runs?",
				"es": "¿Qué observa cuando funciona el lavavajillas?",
			},
			options: map[string][]string{
				"en": {"Dishes come out dirty", "Water left at the bottom", "Leaking onto the floor", "Loud grinding noise", "Other / Not sure"},
				"es": {"Los platos salen sucios", "Queda agua en el fondo", "Gotea al suelo", "Ruido fuerte", "Otro / No estoy seguro"},
			},
		},
		{
			qtype: TypeTiming,
			text: map[string]string{
				"en": "When did you first notice it?",
				"es": "¿Cuándo lo notó por primera vez?",
			},
		},
	},
}

// categoryAliases maps common names onto fallback table keys.
var categoryAliases = map[string]string{
	"fridge":          "refrigerator",
	"freezer":         "refrigerator",
	"washing machine": "washer",
	"washing-machine": "washer",
	"laundry machine": "washer",
	"stove":           "oven",
	"range":           "oven",
	"cooker":          "oven",
}

// FallbackQuestions returns the deterministic question sequence for an
// equipment type. Unknown categories get a single generic timing question,
// so the result is never empty.
func FallbackQuestions(equipmentType, language string) []Question {
	key := normalizeCategory(equipmentType)
	seq, ok := fallbackTable[key]
	if !ok {
		return []Question{genericTimingQuestion(language)}
	}

	out := make([]Question, 0, len(seq))
	for i, cq := range seq {
		text, ok := cq.text[language]
		if !ok {
			text = cq.text["en"]
		}
		var opts []string
		if cq.options != nil {
			opts, ok = cq.options[language]
			if !ok {
				opts = cq.options["en"]
			}
		}
		if len(opts) == 0 {
			opts = DefaultOptions(cq.qtype, language)
		}
		out = append(out, Question{
			Question: text,
			Type:     cq.qtype,
			Options:  opts,
			Context:  positionContext(i + 1),
		})
	}
	return out
}

// normalizeCategory lowercases the type and resolves aliases, matching on
// substrings so "Samsung Refrigerator RT38" still lands on "refrigerator".
func normalizeCategory(equipmentType string) string {
	t := strings.ToLower(strings.TrimSpace(equipmentType))
	if alias, ok := categoryAliases[t]; ok {
		return alias
	}
	if _, ok := fallbackTable[t]; ok {
		return t
	}
	for key := range fallbackTable {
		if strings.Contains(t, key) {
			return key
		}
	}
	for alias, key := range categoryAliases {
		if strings.Contains(t, alias) {
			return key
		}
	}
	return t
}

func genericTimingQuestion(language string) Question {
	text := "When did you first notice the problem?"
	if language == "es" {
		text = "¿Cuándo notó el problema por primera vez?"
	}
	return Question{
		Question: text,
		Type:     TypeTiming,
		Options:  DefaultOptions(TypeTiming, language),
		Context:  positionContext(1),
	}
}
