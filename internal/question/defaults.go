package question

// defaultOptions maps language → question type → fallback option list.
// Every list ends with an "Other / Not sure" choice so users are never
// forced into a wrong answer.
var defaultOptions = map[string]map[string][]string{
	"en": {
		TypeTiming:   {"Just now", "Today", "A few days ago", "More than a week ago", "It comes and goes", "Other / Not sure"},
		TypeSymptom:  {"Strange noise", "Leak or moisture", "Burning smell", "No response at all", "Error indicator", "Other / Not sure"},
		TypeContext:  {"During normal use", "After cleaning", "After moving it", "After a power outage", "Other / Not sure"},
		TypeSeverity: {"Not working at all", "Partially working", "Works but behaves oddly", "Minor annoyance", "Other / Not sure"},
		TypeLocation: {"Top section", "Bottom section", "Front", "Back", "Inside", "Other / Not sure"},
		TypeFunction: {"Does not turn on", "Turns on but stops", "Runs but no output", "Works intermittently", "Other / Not sure"},
	},
	"es": {
		TypeTiming:   {"Ahora mismo", "Hoy", "Hace unos días", "Hace más de una semana", "Va y viene", "Otro / No estoy seguro"},
		TypeSymptom:  {"Ruido extraño", "Fuga o humedad", "Olor a quemado", "No responde", "Indicador de error", "Otro / No estoy seguro"},
		TypeContext:  {"Durante el uso normal", "Después de limpiarlo", "Después de moverlo", "Después de un corte de luz", "Otro / No estoy seguro"},
		TypeSeverity: {"No funciona en absoluto", "Funciona parcialmente", "Funciona pero raro", "Molestia menor", "Otro / No estoy seguro"},
		TypeLocation: {"Parte superior", "Parte inferior", "Frente", "Atrás", "Interior", "Otro / No estoy seguro"},
		TypeFunction: {"No enciende", "Enciende pero se detiene", "Funciona sin resultado", "Funciona a ratos", "Otro / No estoy seguro"},
	},
}

// DefaultOptions returns the fallback option set for a question type in the
// given language, falling back to English for unknown languages and to the
// context set for unknown types.
func DefaultOptions(qtype, language string) []string {
	byType, ok := defaultOptions[language]
	if !ok {
		byType = defaultOptions["en"]
	}
	opts, ok := byType[qtype]
	if !ok {
		opts = byType[TypeContext]
	}
	out := make([]string, len(opts))
	copy(out, opts)
	return out
}
