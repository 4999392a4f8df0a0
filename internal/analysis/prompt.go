package analysis

import (
	"strings"

	"github.com/lithammer/dedent"
)

// bookPrompt asks for bibliographic data, ruler based measurements, a
// condition assessment and a market price research in one JSON object.
var bookPrompt = strings.TrimSpace(dedent.Dedent(`
	Analysiere die bereitgestellten Buchbilder und führe eine umfassende Recherche durch.
	Beachte dabei alle sichtbaren Details auf den Bildern (Cover, Rückseite, Impressum etc.).

	1. Grundinformationen extrahieren:
	- Deutscher Titel und Originaltitel (falls abweichend)
	- Autor(en)
	- ISBN/EAN
	- Verlag
	- Erscheinungsjahr
	- Auflage/Edition (mit Details wie "Erstausgabe", "limitiert" etc.)
	- Format (Hardcover/Paperback/Sonderformat)
	- Seitenanzahl
	- Sprache
	- Genre/Kategorie

	2. Maße und physische Eigenschaften:
	- WICHTIG: Suche auf den Bildern nach einem Zollstock/Maßband
	- Miss die Länge, Breite und Höhe des Buches anhand des Zollstocks/Maßbands
	- Gib die Maße in Zentimetern an (Länge x Breite x Höhe)
	- Achte auf korrekte Perspektive und Ausrichtung bei der Messung
	- Vermerke wenn kein Maßstab im Bild erkennbar ist

	3. Zustandsanalyse (basierend auf allen Bildern):
	- Detaillierte Beschreibung des Zustands
	- Vorhandene Mängel oder Besonderheiten
	- Gebrauchsspuren
	- Zustandseinschätzung (Neu/Wie neu/Sehr gut/Gut/Akzeptabel)
	- Vollständigkeit (falls erkennbar)

	4. Preisrecherche und Marktanalyse:
	- Neupreis (wenn verfügbar, z.B. von Rückseite oder Verlagsangabe)
	- Vergleichbare AKTUELLE Angebote der GLEICHEN Auflage (mindestens 5 wenn möglich,
	  mit Links, Zustand, Preis und Besonderheiten wie signiert oder Schutzumschlag)
	- Vergleichbare Angebote ANDERER Auflagen (mindestens 3 pro relevante Auflage,
	  mit Auflage, Jahr und Preis im Verhältnis zur analysierten Auflage)
	- Angebote OHNE Auflagenangabe (mindestens 3, mit Preisen)
	- Preisempfehlung im Format "X-Y EUR" für optimalen Verkauf und Schnellverkauf,
	  begründet mit konkreten Vergleichsangeboten, dem Zustand des Exemplars,
	  Besonderheiten der Auflage und der aktuellen Marktsituation
	- Zustandsbasierte Preise (neuwertig, sehr gut, gut, akzeptabel)

	5. Zusatzinformationen:
	- Kurze Inhaltszusammenfassung
	- Zielgruppe
	- Besonderheiten der Edition
	- Auszeichnungen/Rezensionen
	- Sammlungsrelevanz

	Formatiere die Ausgabe als JSON mit folgender Struktur:
	{
	    "metadata": {
	        "deutscher_titel": string,
	        "originaltitel": string,
	        "autor": string,
	        "isbn": string,
	        "verlag": string,
	        "erscheinungsjahr": number,
	        "auflage": string,
	        "format": string,
	        "seitenanzahl": number,
	        "sprache": string,
	        "genre": string
	    },
	    "physical_properties": {
	        "dimensions": {
	            "length": number,
	            "width": number,
	            "height": number,
	            "measurement_confidence": number,
	            "measurement_method": string,
	            "notes": string
	        }
	    },
	    "condition_analysis": {
	        "zustand_beschreibung": string,
	        "maengel_besonderheiten": string,
	        "zustand_einschätzung": string,
	        "confidence_score": number
	    },
	    "market_data": {
	        "neupreis": {"preis": string (format: "X.XX EUR"), "quelle": string},
	        "vergleichsangebote": {
	            "aktuelle_auflage": [{"preis": string, "zustand": string, "zustand_details": string, "anbieter": string, "plattform": string, "link": string, "besonderheiten": string[]}],
	            "andere_auflagen": [{"auflage": string, "erscheinungsjahr": number, "preis": string, "zustand": string, "anbieter": string, "plattform": string, "link": string}],
	            "ohne_auflage": [{"preis": string, "zustand": string, "anbieter": string, "plattform": string, "link": string}],
	            "statistik": {
	                "durchschnittspreis": {"aktuelle_auflage": string, "andere_auflagen": string, "gesamt": string},
	                "preisspanne": {"min": string, "max": string},
	                "angebotsmenge": {"aktuelle_auflage": number, "andere_auflagen": number, "ohne_auflage": number}
	            }
	        },
	        "preisanalyse": {
	            "empfehlung": {
	                "verkaufspreis": {
	                    "optimal": string (format: "X-Y EUR"),
	                    "schnellverkauf": string (format: "X-Y EUR")
	                },
	                "begruendung": {"hauptfaktoren": string[], "referenzangebote": string[], "marktposition": string},
	                "verkaufsstrategie": {"plattform_empfehlungen": {"booklooker": string, "ebay": string}, "optimale_laufzeit": string}
	            },
	            "zustandsbasierte_preise": {
	                "neuwertig": {"preis": string (format: "X-Y EUR"), "marktlage": string},
	                "sehr_gut": {"preis": string (format: "X-Y EUR"), "marktlage": string},
	                "gut": {"preis": string (format: "X-Y EUR"), "marktlage": string},
	                "akzeptabel": {"preis": string (format: "X-Y EUR"), "marktlage": string}
	            }
	        },
	        "marktanalyse": {
	            "verfuegbarkeit": {"aktuelle_auflage": number, "andere_auflagen": number, "ohne_auflage": number, "beschreibung": string},
	            "sammlerwert": {"einschaetzung": string, "begruendung": string}
	        },
	        "confidence_score": number
	    },
	    "additional_info": {
	        "inhaltszusammenfassung": string,
	        "zielgruppe": string,
	        "besonderheiten": string,
	        "auszeichnungen": string,
	        "sammlungsrelevanz": string,
	        "confidence_score": number
	    }
	}

	Setze für unbekannte Werte null ein. Bewerte die Konfidenz deiner Einschätzungen mit Werten zwischen 0 und 1.
`))

// Prompt returns the analysis prompt sent with every book.
func Prompt() string {
	return bookPrompt
}
