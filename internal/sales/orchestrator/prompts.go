package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"sales-orchestrator/internal/models"
)

// stageDescriptions annotate models.SalesStages in the synthesis prompt.
var stageDescriptions = map[string]string{
	"Introduction":          "Inicia la conversación y presenta al concesionario.",
	"Qualification":         "Confirma si compra, hace trade-in o solo mira. Pregunta presupuesto o necesidades.",
	"Value Proposition":     "Explica por qué somos la mejor opción (garantía, servicio rápido).",
	"Needs Analysis":        "Preguntas detalladas sobre lo que necesita (SUV vs sedán, gasolina vs híbrido).",
	"Solution Presentation": "Recomienda autos específicos del inventario según sus necesidades.",
	"Objection Handling":    "Atiende con cortesía las dudas de precio o financiamiento.",
	"Close":                 "Pide agendar una prueba de manejo o visita.",
	"End":                   "Despedida cordial.",
}

func salesStagesText(stages []string) string {
	var b strings.Builder
	for i, s := range stages {
		fmt.Fprintf(&b, "%d. %s", i+1, s)
		if d, ok := stageDescriptions[s]; ok {
			fmt.Fprintf(&b, ": %s", d)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func researchPrompt(message string, history []models.ChatMessage, lead models.LeadContext, memory *models.CustomerMemory) string {
	return fmt.Sprintf(`Eres el agente de investigación del concesionario.
Analiza este mensaje: "%s"
Historial: %s
Contexto del lead: %s
Memoria del cliente: %s

RETORNA SOLO UN OBJETO JSON con:
- queryExpansion: versión profesional de la búsqueda.
- needsInventory: boolean.
- needsPolicy: boolean (F&I/financiamiento).`,
		message, toJSON(history), toJSON(lead), memoryJSON(memory))
}

func synthesisPrompt(stages []string, message, brief string, vehicle *models.Vehicle) string {
	vehicleText := "Ninguno"
	if vehicle != nil {
		vehicleText = toJSON(vehicle)
	}
	return fmt.Sprintf(`Eres el vendedor estrella del concesionario.
ETAPAS DE VENTA:
%s
MENSAJE CLIENTE: "%s"
CONTEXTO INVESTIGACIÓN: %s
VEHÍCULO ACTUAL: %s

Enfoque: determina la ETAPA ACTUAL basada en el historial y avanza a la siguiente.
Genera una respuesta en "Boricua Profesional".
REGLA DE ORO: No prometas APR exacto ni pagos exactos sin aclarar que el financiamiento está sujeto a aprobación. Sé servicial.`,
		salesStagesText(stages), message, brief, vehicleText)
}

func validationPrompt(draft, brief string) string {
	return fmt.Sprintf(`Eres el agente de validación (auditor de calidad).
RESPUESTA PROPUESTA: "%s"
CONTEXTO DE VERDAD: %s

AUDITA SEGÚN:
1. Precisión: ¿miente sobre el inventario?
2. Reglas de oro: ¿prometió APR o pagos exactos sin aclarar que están sujetos a aprobación?
3. Identidad: ¿suena como el vendedor del concesionario?

RETORNA JSON: { "passed": boolean, "feedback": "string", "correctedResponse": "string" (opcional) }`,
		draft, brief)
}

func negotiationPrompt(message string, sims []models.LoanSimulation) string {
	finance := "null"
	if len(sims) > 0 {
		finance = toJSON(sims)
	}
	return fmt.Sprintf(`Review this user request: "%s".
If there is an objection (price, interest, trade-in), suggest a psychological rebuttal using PAS or AIDA.
Context: the user is looking at finance options: %s.
Return a negotiation strategy name or null.`, message, finance)
}

func memoryJSON(m *models.CustomerMemory) string {
	if m == nil {
		return "{}"
	}
	return toJSON(struct {
		Preferences models.Preferences `json:"preferences"`
		History     []string           `json:"history"`
	}{m.Preferences, m.History})
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
