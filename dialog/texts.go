package dialog

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/flotabot/core/whatsapp"
	"github.com/m3rciful/flotabot/store"
)

// All user-facing copy lives here, in the conversation's language. Nothing
// below exposes internal identifiers.

const (
	textGreeting = "👋 ¡Bienvenido al sistema de información de camiones! " +
		"Para comenzar, necesito que me proporciones la placa del camión."
	textFarewell       = "Gracias por utilizar nuestro servicio. ¡Hasta pronto! 👋"
	textTimeoutNotice  = "⏰ Tu sesión expiró por inactividad. Empecemos de nuevo."
	textInvalidOption  = "No entendí tu selección. Por favor, elige una opción válida."
	textNewPlatePrompt = "Por favor, ingresa la nueva placa del camión que deseas consultar:"
	textBackHint       = "Para volver al menú principal, escribe 'volver'."
	textCategoryRetry  = "No entendí tu selección. Elige una pregunta de la lista o escribe 'volver'."

	menuHeader      = "Información del Camión"
	menuButtonLabel = "Ver opciones"
)

func textPlateNotFound(plate string) string {
	return fmt.Sprintf("❌ No encontré ningún camión con la placa %s. "+
		"Por favor, verifica e intenta nuevamente.", plate)
}

// listTitleBudget is the display budget for list row titles. Longer titles
// are truncated with an ellipsis, which is why answer lookup keys off row
// ids and never off titles.
const listTitleBudget = 24

// TruncateTitle fits a row title into the display budget.
func TruncateTitle(title string) string {
	r := []rune(strings.TrimSpace(title))
	if len(r) <= listTitleBudget {
		return string(r)
	}
	return string(r[:listTitleBudget-1]) + "…"
}

// menuOption is one main-menu entry with everything needed for tolerant
// matching: ordinal, control id, and typed synonyms.
type menuOption struct {
	id       string
	title    string
	synonyms []string
}

var mainMenu = []menuOption{
	{id: "details", title: "1. Detalles del Camión", synonyms: []string{"detalles del camión", "detalles del camion", "detalles"}},
	{id: "security", title: "2. Seguridad", synonyms: []string{"seguridad"}},
	{id: "quality", title: "3. Calidad", synonyms: []string{"calidad"}},
	{id: "transport", title: "4. Transporte", synonyms: []string{"transporte"}},
	{id: "new_plate", title: "5. Consultar otra placa", synonyms: []string{"consultar otra placa", "otra placa"}},
	{id: ControlExit, title: "6. Finalizar", synonyms: []string{"finalizar"}},
}

// resolveMenuOption matches an event against the main menu: control id
// first, then ordinal, then synonyms. Returns "" when nothing matches.
func resolveMenuOption(ev Event) string {
	if ev.ControlID != "" {
		for _, opt := range mainMenu {
			if opt.id == ev.ControlID {
				return opt.id
			}
		}
	}
	folded := Canon(ev.CanonicalText)
	for i, opt := range mainMenu {
		if folded == fmt.Sprint(i+1) {
			return opt.id
		}
		for _, syn := range opt.synonyms {
			if folded == syn {
				return opt.id
			}
		}
	}
	return ""
}

// menuStepByOption maps category menu options to their steps.
var menuStepByOption = map[string]Step{
	"security":  StepShowSecurity,
	"quality":   StepShowQuality,
	"transport": StepShowTransport,
}

func menuBody(truck *store.Truck) string {
	return fmt.Sprintf("Se encontró el camión con placa %s.\nConductor: %s\n\nSelecciona una opción:",
		truck.LicensePlate, truck.DriverName)
}

func menuRows() []whatsapp.Option {
	rows := make([]whatsapp.Option, 0, len(mainMenu))
	for _, opt := range mainMenu {
		rows = append(rows, whatsapp.Option{ID: opt.id, Title: TruncateTitle(opt.title)})
	}
	return rows
}

func menuFallback(truck *store.Truck) string {
	var b strings.Builder
	b.WriteString(menuBody(truck))
	b.WriteString("\n")
	for _, opt := range mainMenu {
		b.WriteString("\n")
		b.WriteString(opt.title)
	}
	return b.String()
}

func navButtons() []whatsapp.Option {
	return []whatsapp.Option{
		{ID: ControlBack, Title: "Volver al menú"},
		{ID: ControlExit, Title: "Finalizar"},
	}
}

const navPrompt = "¿Qué deseas hacer ahora?"

func navFallback() string {
	return navPrompt + "\n\nEscribe 'volver' para el menú o 'finalizar' para terminar."
}

// detailCard renders the truck detail text, maintenance report included.
func detailCard(truck *store.Truck, now time.Time) string {
	var b strings.Builder
	b.WriteString("📋 *DETALLES DEL CAMIÓN*\n\n")
	fmt.Fprintf(&b, "*Placa:* %s\n", truck.LicensePlate)
	fmt.Fprintf(&b, "*Conductor:* %s\n", truck.DriverName)
	fmt.Fprintf(&b, "*Modelo:* %s\n", truck.Model)
	fmt.Fprintf(&b, "*Año:* %d\n", truck.Year)
	fmt.Fprintf(&b, "*Estado actual:* %s\n", truck.Status)

	if truck.LastMaintenance.Valid {
		days := int(now.Sub(truck.LastMaintenance.Time).Hours() / 24)
		b.WriteString("\n🔧 *MANTENIMIENTO*\n")
		fmt.Fprintf(&b, "*Último mantenimiento:* %s\n", truck.LastMaintenance.Time.Format("02/01/2006"))
		fmt.Fprintf(&b, "*Días desde el último mantenimiento:* %d días\n", days)
		switch {
		case days > 90:
			b.WriteString("\n⚠️ *ALERTA:* El vehículo necesita mantenimiento urgente.\n")
		case days > 75:
			b.WriteString("\n⚠️ *AVISO:* El vehículo necesitará mantenimiento pronto.\n")
		default:
			b.WriteString("\n✅ Mantenimiento al día.\n")
		}
	}

	return b.String()
}
