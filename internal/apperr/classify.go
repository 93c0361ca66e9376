package apperr

import "strings"

// Rule maps remote error text to a curated user message. A rule matches when
// the lower-cased error text contains any of its substrings.
type Rule struct {
	Contains []string
	Message  string
}

// Classifier turns remote failures into one of a small set of user messages.
// Classification is textual on purpose: the backend reports business rule
// violations only as free text.
type Classifier struct {
	Rules   []Rule
	Default string
}

// Message returns the curated message for err and whether a rule matched.
// Unmatched errors get the default retry message.
func (c Classifier) Message(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	text := strings.ToLower(err.Error())
	for _, r := range c.Rules {
		for _, s := range r.Contains {
			if strings.Contains(text, strings.ToLower(s)) {
				return r.Message, true
			}
		}
	}
	return c.Default, false
}

var AddToCart = Classifier{
	Rules: []Rule{
		{
			Contains: []string{"no esta disponible", "no está disponible"},
			Message:  "Ese vehiculo no esta disponible en las fechas seleccionadas. Prueba con otras fechas.",
		},
		{
			Contains: []string{"mantenimiento"},
			Message:  "Ese vehiculo esta en mantenimiento para esas fechas.",
		},
		{
			Contains: []string{"datos invalidos", "datos inválidos", "modelo invalido"},
			Message:  "Los datos de la reserva no son validos. Revisa las fechas seleccionadas.",
		},
	},
	Default: "No se pudo agregar el vehiculo al carrito. Intentalo nuevamente.",
}

var Registration = Classifier{
	Rules: []Rule{
		{
			Contains: []string{"ya existe", "ya registrado", "duplicate"},
			Message:  "Ya existe una cuenta registrada con ese correo o identificacion.",
		},
	},
	Default: "No se pudo completar el registro. Intentalo nuevamente.",
}
