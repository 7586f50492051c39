package indicator

import (
	"os"
	"strings"
)

type messages struct {
	recording  string
	processing string
	errorText  string
}

var catalog = map[string]messages{
	"en": {
		recording:  "Recording…",
		processing: "Processing transcript…",
		errorText:  "Speech recognition error",
	},
	"de": {
		recording:  "Aufnahme läuft…",
		processing: "Transkript wird verarbeitet…",
		errorText:  "Fehler bei der Spracherkennung",
	},
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(os.Getenv("LANG"))
}

// indicatorMessages picks the catalog entry for a POSIX locale such as
// "de_DE.UTF-8", defaulting to English.
func indicatorMessages(lang string) messages {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if len(lang) >= 2 {
		if msg, ok := catalog[lang[:2]]; ok {
			return msg
		}
	}
	return catalog["en"]
}
