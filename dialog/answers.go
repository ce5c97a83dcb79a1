package dialog

import (
	"fmt"

	"github.com/m3rciful/flotabot/core/whatsapp"
)

// qa is a single question with its canned answer. Row ids use the stable
// "<prefix>_<n>" form so lookups survive title truncation.
type qa struct {
	question string
	answer   string
}

// answersByCategory holds the canned question sets per category prefix.
var answersByCategory = map[string][]qa{
	"security": {
		{
			question: "¿Qué hacer en caso de accidente?",
			answer: "🚨 *En caso de accidente:*\n\n" +
				"1. Mantén la calma y verifica si hay heridos.\n" +
				"2. Llama inmediatamente a la central de emergencias.\n" +
				"3. No muevas el vehículo hasta recibir instrucciones.\n" +
				"4. Toma fotografías de la escena si es seguro hacerlo.",
		},
		{
			question: "¿Cómo reportar una falla mecánica?",
			answer: "🔧 *Para reportar una falla mecánica:*\n\n" +
				"Comunícate con el área de mantenimiento indicando la placa del " +
				"camión, la ubicación actual y una descripción de la falla. " +
				"Un técnico evaluará si puedes continuar el viaje.",
		},
		{
			question: "Equipo de seguridad obligatorio",
			answer: "🦺 *Equipo de seguridad obligatorio:*\n\n" +
				"• Chaleco reflectante\n" +
				"• Casco de seguridad\n" +
				"• Extintor vigente\n" +
				"• Triángulos de emergencia\n" +
				"• Botiquín de primeros auxilios",
		},
	},
	"quality": {
		{
			question: "Estándares de carga",
			answer: "📦 *Estándares de carga:*\n\n" +
				"La carga debe ir asegurada con fajas certificadas, distribuida " +
				"uniformemente y sin exceder el peso máximo autorizado del vehículo.",
		},
		{
			question: "Inspección previa al viaje",
			answer: "✅ *Inspección previa al viaje:*\n\n" +
				"Antes de salir revisa niveles de fluidos, presión de neumáticos, " +
				"luces, frenos y documentación del vehículo. Registra la inspección " +
				"en la hoja de ruta.",
		},
		{
			question: "¿Cómo reportar daños en la carga?",
			answer: "📋 *Para reportar daños en la carga:*\n\n" +
				"Documenta el daño con fotografías, anota el número de guía y " +
				"notifica al supervisor de operaciones antes de la entrega.",
		},
	},
	"transport": {
		{
			question: "Rutas autorizadas",
			answer: "🗺️ *Rutas autorizadas:*\n\n" +
				"Solo se permite circular por las rutas asignadas en la hoja de " +
				"ruta. Cualquier desvío debe ser autorizado previamente por la " +
				"central de operaciones.",
		},
		{
			question: "Tiempos de conducción",
			answer: "⏱️ *Tiempos de conducción:*\n\n" +
				"Máximo 5 horas de conducción continua, con descansos de al menos " +
				"30 minutos. La jornada total no debe superar las 10 horas.",
		},
		{
			question: "Documentación requerida",
			answer: "📄 *Documentación requerida:*\n\n" +
				"• Licencia de conducir vigente\n" +
				"• Tarjeta de propiedad del vehículo\n" +
				"• SOAT y revisión técnica\n" +
				"• Hoja de ruta del viaje",
		},
	},
}

// categoryRows builds the interactive list rows for a category. Row ids are
// "<prefix>_<n>" with n starting at 1.
func categoryRows(prefix string) []whatsapp.Option {
	qs := answersByCategory[prefix]
	rows := make([]whatsapp.Option, 0, len(qs))
	for i, q := range qs {
		rows = append(rows, whatsapp.Option{
			ID:    fmt.Sprintf("%s_%d", prefix, i+1),
			Title: TruncateTitle(q.question),
		})
	}
	return rows
}

func categoryHeader(prefix string) string {
	switch prefix {
	case "security":
		return "Seguridad"
	case "quality":
		return "Calidad"
	case "transport":
		return "Transporte"
	}
	return ""
}

func categoryBody(prefix string) string {
	return fmt.Sprintf("Preguntas frecuentes de %s. Selecciona una:", categoryHeader(prefix))
}

func categoryFallback(prefix string) string {
	qs := answersByCategory[prefix]
	out := categoryBody(prefix) + "\n"
	for i, q := range qs {
		out += fmt.Sprintf("\n%d. %s", i+1, q.question)
	}
	out += "\n\n" + textBackHint
	return out
}

// resolveAnswer looks up a canned answer within a category. It accepts the
// stable row id ("security_3"), a bare ordinal ("3"), or the full question
// text. The second return is false when nothing matches.
func resolveAnswer(prefix string, ev Event) (string, bool) {
	qs := answersByCategory[prefix]
	if ev.ControlID != "" {
		for i := range qs {
			if ev.ControlID == fmt.Sprintf("%s_%d", prefix, i+1) {
				return qs[i].answer, true
			}
		}
		return "", false
	}
	folded := Canon(ev.CanonicalText)
	for i, q := range qs {
		if folded == fmt.Sprint(i+1) || folded == Canon(q.question) {
			return qs[i].answer, true
		}
	}
	return "", false
}
