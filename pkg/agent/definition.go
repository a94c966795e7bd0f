package agent

import "github.com/abasto-labs/tendero/pkg/catalog"

const (
	assistantName  = "Asistente Personal de Abarrotes"
	assistantModel = "gpt-4o"

	instructions = "Eres un asistente especializado en ayudar tiendas pequeñas de abarrotes. " +
		"Habla como una persona de manera amistosa y breve. Da tus respuestas de manera " +
		"muy concisa y breve, explicando solo los puntos clave como en una conversación normal."
)

// DefaultDefinition is the shopkeeper assistant advertised to the provider,
// carrying the catalog's tool signatures.
func DefaultDefinition(c *catalog.Catalog) Definition {
	return Definition{
		Name:         assistantName,
		Model:        assistantModel,
		Instructions: instructions,
		Tools:        c.Specs(),
	}
}
