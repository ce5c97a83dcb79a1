package dialog

import "strings"

// Reserved control ids reported by navigation buttons. Routing keys off these
// ids, never off the visible button titles.
const (
	ControlExit = "end"
	ControlBack = "back_menu"
)

// Canonical phrases the reserved ids are remapped to by the normalizer, so
// button taps and typed text take the same matching path.
const (
	ExitPhrase = "finalizar"
	BackPhrase = "volver al menú"
)

// The shared command tables. Exit and back recognition is defined once here
// and consulted by both the normalizer and the pre-transition checks.
var (
	exitSynonyms = []string{
		"salir",
		"finalizar",
		"exit",
		"end",
		"finalizar consulta",
	}

	backSynonyms = []string{
		"volver",
		"volver al menú",
		"volver al menu",
		"menú",
		"menu",
		"back",
	}
)

// Canon folds input for command matching: trimmed and lower-cased.
func Canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsExit reports whether the canonical text is a quit/end command.
func IsExit(text string) bool {
	return matchAny(text, exitSynonyms)
}

// IsBack reports whether the canonical text is a back-to-menu command.
func IsBack(text string) bool {
	return matchAny(text, backSynonyms)
}

func matchAny(text string, synonyms []string) bool {
	folded := Canon(text)
	if folded == "" {
		return false
	}
	for _, syn := range synonyms {
		if folded == syn {
			return true
		}
	}
	return false
}
