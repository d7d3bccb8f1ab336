// Package mapping resolves spreadsheet columns to entity fields.
//
// Two strategies exist. Form exports have stable headers, so each import
// type carries a static header-to-field table. Operational trackers are
// hand-edited and their headers drift between exports, so those are located
// by fuzzy substring search over an ordered candidate list.
package mapping

import "strings"

// Index maps lowercased header text to its column position.
type Index map[string]int

// NewIndex builds an Index from a header row. Matching is case-insensitive
// and ignores surrounding whitespace.
func NewIndex(header []string) Index {
	idx := make(Index, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Lookup returns the position of an exact header match.
func (idx Index) Lookup(header string) (int, bool) {
	pos, ok := idx[strings.ToLower(strings.TrimSpace(header))]
	return pos, ok
}

// FindColumn scans headers for the first one containing any of the candidate
// terms, in candidate order (first term that matches anywhere wins). Returns
// ok=false when no header matches; the caller decides whether that is fatal.
func FindColumn(header []string, terms []string) (int, bool) {
	for _, term := range terms {
		term = strings.ToLower(term)
		for i, h := range header {
			if strings.Contains(strings.ToLower(h), term) {
				return i, true
			}
		}
	}
	return 0, false
}

// Subscriber form columns shared by the individual variants.
var SubscriberColumns = map[string]string{
	"Nombre y Apellido: Nombre":                    "nombre",
	"Nombre y Apellido: Apellidos":                 "apellido",
	"Correo electrónico":                           "email",
	"Teléfono":                                     "telefono",
	"Calle":                                        "calle",
	"Nro":                                          "numero",
	"Piso y Depto":                                 "piso_depto",
	"Codigo Postal":                                "codigo_postal",
	"Ciudad":                                       "ciudad",
	"Provincia":                                    "provincia",
	"Fecha de nacimiento":                          "fecha_nacimiento",
	"DNI":                                          "dni",
	"¿Como te enteraste del proyecto?":             "como_se_entero",
	"¿Porque queres participar de Malvinas 3D?":    "motivo_participacion",
	"¿Porque querés participar de MALVINAS 3D?":    "motivo_participacion",
}

// InstitutionColumns replace the person-name headers on institution forms.
var InstitutionColumns = map[string]string{
	"Nombre de la Institución":                   "nombre_institucion",
	"Correo electrónico":                         "email",
	"Teléfono":                                   "telefono",
	"Calle":                                      "calle",
	"Nro":                                        "numero",
	"Piso y Depto":                               "piso_depto",
	"Codigo Postal":                              "codigo_postal",
	"Ciudad":                                     "ciudad",
	"Provincia":                                  "provincia",
	"¿Como te enteraste del proyecto?":           "como_se_entero",
	"¿Porque queres participar de Malvinas 3D?":  "motivo_participacion",
	"¿Porque querés participar de MALVINAS 3D?":  "motivo_participacion",
}

// PrinterColumns cover the capability survey block on with-printer forms.
var PrinterColumns = map[string]string{
	"¿Cuántos años hace que trabajás con esta tecnología?": "anios_experiencia",
	"¿De qué Marcas y Modelos son tus equipos?":            "marcas_modelos_equipos",
	"¿Qué materiales usás regularmente?":                   "materiales_uso",
	"¿Cuántos equipos tenés?":                              "cantidad_equipos",
	"¿Cuál es la dimensión máxima qué podés imprimir?":     "dimension_maxima_impresion",
	"¿Qué Software usás?":                                  "software_uso",
}

// ResponsibleColumns cover the responsible-person block on institution forms.
var ResponsibleColumns = map[string]string{
	"Nombre y Apellido del responsable": "nombre_responsable",
	"DNI":                               "dni_responsable",
}

// NodeColumns map the receiving-node nomination form.
var NodeColumns = map[string]string{
	"Número/s de orden de 4 cifras:":          "numero_orden",
	"Numero/s de bloque/s de 2 cifras:":       "numero_bloque",
	"Nombre del responsable de impresión 3d:": "responsable_impresion",
	"Calle:":               "calle",
	"Numero:":              "numero",
	"Codigo Postal:":       "codigo_postal",
	"Localidad:":           "localidad",
	"Departamento:":        "departamento",
	"Provincia:":           "provincia",
	"Teléfono:":            "telefono",
	"Correo electrónico:":  "email",
	"Seleccionar Nodo:":    "nodo_seleccionado",
}

// NodeParticipantHeader names the participant column on the node form. It is
// read when auto-creating a subscriber but has no field on the node itself.
const NodeParticipantHeader = "Nombre del participante particular o institución:"

// Tracker candidate terms, in search priority order. The tracker sheet is
// hand-maintained and its headers vary between exports, so every tracker
// column goes through FindColumn.
var (
	TrackerBlockTerms     = []string{"bloque"}
	TrackerEmailTerms     = []string{"mail", "email", "correo"}
	TrackerValidatedTerms = []string{"valida foto", "validacion", "foto"}
	TrackerDeliveredTerms = []string{"anoto nodo", "entregado", "nodo"}
	TrackerReceivedTerms  = []string{"recibimos", "recibido"}
	TrackerDiplomaTerms   = []string{"diploma", "ok"}
	TrackerLotteryTerms   = []string{"sorteo"}
)

// Positional tracker layout used by full reconciliation runs. These are the
// historical column positions of the participants tracker; fuzzy search is
// the fallback when an export deviates.
const (
	TrackerColBlock     = 2
	TrackerColEmail     = 3
	TrackerColValidated = 12
	TrackerColDelivered = 13
	TrackerColReceived  = 14
	TrackerColDiploma   = 15
)
