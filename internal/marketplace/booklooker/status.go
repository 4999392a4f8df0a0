package booklooker

// Import states reported by /file_status.
const (
	StatusFileReceived = "FILE_RECEIVED"
	StatusQueued       = "QUEUED"
	StatusProcessing   = "PROCESSING"
	StatusValidating   = "VALIDATING"
	StatusValidated    = "VALIDATED"
	StatusImporting    = "IMPORTING"
	StatusImported     = "IMPORTED"
	StatusRejected     = "REJECTED"
	StatusError        = "ERROR"
	StatusUnknown      = "UNKNOWN"
)

var statusMessages = map[string]string{
	StatusFileReceived: "Datei empfangen",
	StatusQueued:       "In Warteschlange",
	StatusProcessing:   "Wird verarbeitet",
	StatusValidating:   "Validiere Daten",
	StatusValidated:    "Daten validiert",
	StatusImporting:    "Importiere Daten",
	StatusImported:     "Import erfolgreich",
	StatusRejected:     "Import abgelehnt",
	StatusError:        "Fehler beim Import",
	StatusUnknown:      "Status unbekannt",
}

// StatusMessage returns the German description of an import state, or the
// state itself when it is not known.
func StatusMessage(status string) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return status
}
