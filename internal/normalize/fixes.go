package normalize

import "strings"

// The chains occasionally publish cells with broken characters or
// stray markers. The repairs below are keyed by chain name and matched
// by substring, the way the bad values actually appear in the files.

type nameFix struct {
	contains string
	fold     bool // match case-insensitively
	value    string
}

var nameFixes = map[string][]nameFix{
	"BOSO": {
		{contains: "?AŠE", value: "PODMETAČ IBAMBUS ZA ČAŠE 4/1"},
		{contains: "42?42 CM RAKETA LUNA", fold: true, value: "PUZZL 42/1 42x42 CM RAKETA LUNA"},
		{contains: "42?42 CM KOČIJA LUNA", fold: true, value: "PUZZL 42/1 42x42 CM KOČIJA LUNA"},
	},
	"TOMMY": {
		{contains: "DINGAÈ", value: "VINO DINGAČ 0,75 L ROSO"},
	},
	"EUROSPIN": {
		{contains: "9VAKAĆA", fold: true, value: "ŽVAKAĆA GUM.OR.CARE 3*23,8G 71,4G"},
		{contains: "KASIICA KUKUR.,RI?A", value: "KASIICA KUKUR.,RIŽA,TAPI. BIO 200G"},
		{contains: "OMEKŠIVA?", value: "GEL KAPS.RUBLJE 5U1 OMEKŠIVAČ 20KOM"},
	},
	"NTL": {
		{contains: "ŽICA ZA POSU?E S DRŠKOM", value: "ŽICA ZA POSUĐE S DRŠKOM"},
		{contains: "POWER INOX SPU?VICA 2/1", value: "VILEDA GLITZI POWER INOX SPUŽVICA 2/1"},
		{contains: "POWER MAGICNA SPU?VA", value: "VILEDA MIRACLEAN POWER MAGICNA SPUŽVA"},
		{contains: "VRAŽJA KAN?A", value: "KREMA VRAŽJA KANĐA 250 ML"},
	},
}

// charFixes are rune substitutions applied to the uppercased name.
var charFixes = map[string][][2]string{
	"BOSO": {{"Æ", "Ć"}, {"È", "Č"}},
}

// FixName repairs known-bad product names of a chain. Unknown values
// pass through unchanged.
func FixName(chain, s string) string {
	for _, f := range nameFixes[chain] {
		if f.fold {
			if strings.Contains(strings.ToUpper(s), strings.ToUpper(f.contains)) {
				return f.value
			}
		} else if strings.Contains(s, f.contains) {
			return f.value
		}
	}
	for _, cf := range charFixes[chain] {
		if strings.Contains(strings.ToUpper(s), cf[0]) {
			s = strings.ReplaceAll(strings.ToUpper(s), cf[0], cf[1])
		}
	}
	return s
}

// FixCode repairs known-bad product codes. A false return means the
// code is garbage and must be treated as absent.
func FixCode(chain, s string) (string, bool) {
	switch chain {
	case "TRGOVINA KRK":
		if strings.Contains(s, "8,00741E+12") {
			return "", false
		}
	case "ŽABAC":
		if s == "0," {
			return "0", true
		}
	}
	return s, true
}

// FixBrand repairs known-bad brand values.
func FixBrand(chain, s string) string {
	if chain == "DM" && strings.Contains(s, "ISTO POLIT.") {
		return "ČISTO POLIT."
	}
	return s
}

// FixAnchorPrice strips the stray "MPC...=" markers Kaufland publishes
// in its anchor price column.
func FixAnchorPrice(chain, s string) string {
	if chain != "KAUFLAND" {
		return s
	}
	if s == "MPC4.7.25" {
		return "4.49"
	}
	if strings.Contains(s, "MPC") && strings.Contains(s, "=") {
		_, rest, _ := strings.Cut(s, "=")
		if r := []rune(rest); len(r) > 0 {
			return string(r[:len(r)-1])
		}
	}
	return s
}
