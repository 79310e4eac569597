package extract

import "strings"

// makeEntry maps a catalogue needle to the canonical manufacturer name it
// resolves to.
type makeEntry struct {
	needle    string
	canonical string
}

// makeCatalog is scanned linearly; the first needle found as a substring of
// the uppercased text wins. Priority is catalogue order, not position of
// occurrence in the text, so more common fleet makes sit near the top and
// longer needles precede their prefixes (MERCEDES-BENZ before MERCEDES).
var makeCatalog = []makeEntry{
	{"TOYOTA", "TOYOTA"},
	{"VOLKSWAGEN", "VOLKSWAGEN"},
	{"VW", "VOLKSWAGEN"},
	{"FORD", "FORD"},
	{"NISSAN", "NISSAN"},
	{"HYUNDAI", "HYUNDAI"},
	{"KIA", "KIA"},
	{"SUZUKI", "SUZUKI"},
	{"RENAULT", "RENAULT"},
	{"ISUZU", "ISUZU"},
	{"HAVAL", "HAVAL"},
	{"BMW", "BMW"},
	{"MERCEDES-BENZ", "MERCEDES-BENZ"},
	{"MERCEDES", "MERCEDES-BENZ"},
	{"AUDI", "AUDI"},
	{"MAZDA", "MAZDA"},
	{"HONDA", "HONDA"},
	{"CHEVROLET", "CHEVROLET"},
	{"LAND ROVER", "LAND ROVER"},
	{"JEEP", "JEEP"},
	{"MITSUBISHI", "MITSUBISHI"},
	{"PEUGEOT", "PEUGEOT"},
	{"VOLVO", "VOLVO"},
	{"LEXUS", "LEXUS"},
	{"PORSCHE", "PORSCHE"},
	{"FIAT", "FIAT"},
	{"OPEL", "OPEL"},
}

// scanMakes returns the canonical make for the first catalogue entry present
// in the uppercased text, or "" when none is.
func scanMakes(upper string) string {
	for _, e := range makeCatalog {
		if strings.Contains(upper, e.needle) {
			return e.canonical
		}
	}
	return ""
}

// modelRules holds per-make ordered model patterns, keyed by canonical make.
// Evaluated only after a make hit, with the usual first-match discipline.
// Makes without an entry never yield a model.
var modelRules = map[string][]rule{
	"TOYOTA": {
		{re: rx(`\bHILUX\b`)},
		{re: rx(`\bCOROLLA CROSS\b`)},
		{re: rx(`\bCOROLLA\b`)},
		{re: rx(`\bFORTUNER\b`)},
		{re: rx(`\bLAND CRUISER\b`)},
		{re: rx(`\bRAV ?4\b`), transform: joinUpper},
		{re: rx(`\bQUANTUM\b`)},
		{re: rx(`\bYARIS\b`)},
		{re: rx(`\bSTARLET\b`)},
	},
	"VOLKSWAGEN": {
		{re: rx(`\bPOLO VIVO\b`)},
		{re: rx(`\bPOLO\b`)},
		{re: rx(`\bGOLF\b`)},
		{re: rx(`\bTIGUAN\b`)},
		{re: rx(`\bAMAROK\b`)},
		{re: rx(`\bT-CROSS\b`)},
		{re: rx(`\bCADDY\b`)},
	},
	"FORD": {
		{re: rx(`\bRANGER\b`)},
		{re: rx(`\bEVEREST\b`)},
		{re: rx(`\bECOSPORT\b`)},
		{re: rx(`\bFIESTA\b`)},
		{re: rx(`\bFOCUS\b`)},
		{re: rx(`\bFIGO\b`)},
	},
	"NISSAN": {
		{re: rx(`\bNP ?200\b`), transform: joinUpper},
		{re: rx(`\bNAVARA\b`)},
		{re: rx(`\bMAGNITE\b`)},
		{re: rx(`\bQASHQAI\b`)},
		{re: rx(`\bX-TRAIL\b`)},
	},
	"HYUNDAI": {
		{re: rx(`\bI ?[123]0\b`), transform: joinUpper},
		{re: rx(`\bTUCSON\b`)},
		{re: rx(`\bCRETA\b`)},
		{re: rx(`\bVENUE\b`)},
		{re: rx(`\bH-?100\b`)},
	},
	"KIA": {
		{re: rx(`\bPICANTO\b`)},
		{re: rx(`\bSPORTAGE\b`)},
		{re: rx(`\bSELTOS\b`)},
		{re: rx(`\bSONET\b`)},
		{re: rx(`\bRIO\b`)},
	},
	"ISUZU": {
		{re: rx(`\bD-?MAX\b`), transform: joinUpper},
		{re: rx(`\bMU-?X\b`), transform: joinUpper},
	},
	"RENAULT": {
		{re: rx(`\bKWID\b`)},
		{re: rx(`\bDUSTER\b`)},
		{re: rx(`\bTRIBER\b`)},
		{re: rx(`\bCLIO\b`)},
		{re: rx(`\bSANDERO\b`)},
	},
	"BMW": {
		{re: rx(`\bX[1-7]\b`)},
		{re: rx(`\bZ4\b`)},
		{re: rx(`\bM[2-8]\b`)},
		{re: rx(`\b[1-8] SERIES\b`)},
		{re: rx(`\b\d{3}[DI]\b`)},
	},
	"MERCEDES-BENZ": {
		{re: rx(`\b[ABCEGS]-CLASS\b`)},
		{re: rx(`\bGL[ABCES]\b`)},
		{re: rx(`\bSPRINTER\b`)},
		{re: rx(`\bVITO\b`)},
		{re: rx(`\b[CE] ?\d{3}\b`), transform: joinUpper},
	},
	"AUDI": {
		{re: rx(`\bRS ?[1-8]\b`), transform: joinUpper},
		{re: rx(`\bS[1-8]\b`)},
		{re: rx(`\bA[1-8]\b`)},
		{re: rx(`\bQ[2-8]\b`)},
		{re: rx(`\bTT\b`)},
		{re: rx(`\bE-TRON\b`)},
	},
}
