// Package filemeta pulls store metadata out of published price-file
// names. Every chain encodes the store form factor, address, city,
// store code and publication batch differently; the per-chain rules
// live in the tables at the bottom of this file.
package filemeta

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type kind int

const (
	// kindScan collects city tokens right to left: a token belongs to
	// the city while it is purely alphabetic, longer than one rune and
	// not a stopword. Everything left of the city is the address.
	kindScan kind = iota
	// kindPostal splits address and city on a five-digit postal code.
	kindPostal
	// kindCommaPostal takes comma-separated fields with the postal
	// code glued to the front of the city field.
	kindCommaPostal
	// kindCityFirst reads the city from the first token, the address
	// from the rest.
	kindCityFirst
	// kindCityLast reads the city from the last token, the address
	// from the first.
	kindCityLast
	// kindTail keeps the part after the trailing match instead of
	// before it: address and city sit at the end of the name.
	kindTail
	// kindIndexed reads address and city from fixed token positions.
	kindIndexed
)

var postalRx = regexp.MustCompile(`^(.+?)\s+(\d{5})\s+(.+)`)

type extractor struct {
	kind      kind
	trailing  *regexp.Regexp // disposable part of the file name
	delim     string
	splitWS   bool // re-split the single remaining field on whitespace
	gluedForm bool // form factor is dash-glued to the first token
	joined    bool // join tokens with spaces before postal matching
	titleCity bool
	stopwords []string
	addrIdx   int // kindIndexed only
	cityIdx   int
}

var titler = cases.Title(language.Und)

// AddressCity extracts the store address and city from a file name.
// ok is false when the chain has no extraction rule or the name does
// not carry a resolvable city; that is a data condition, not an error.
func AddressCity(chain, filename string) (address, city string, ok bool) {
	ex, found := extractors[chain]
	if !found {
		return "", "", false
	}
	return ex.addressCity(filename)
}

func (ex extractor) addressCity(filename string) (string, string, bool) {
	kept := filename
	if ex.trailing != nil {
		loc := ex.trailing.FindStringIndex(filename)
		if loc == nil {
			return "", "", false
		}
		if ex.kind == kindTail {
			kept = filename[loc[1]:]
		} else {
			kept = filename[:loc[0]]
		}
	}

	parts := strings.Split(kept, ex.delim)
	switch {
	case ex.gluedForm:
		// SUPERMARKET-Bijela_uvala_5_FUNTANA: the form factor and the
		// first address token share one dash-joined field.
		head := strings.SplitN(parts[0], "-", 2)
		if len(head) == 2 {
			parts[0] = head[1]
		}
	case ex.kind == kindTail || ex.kind == kindIndexed:
		// keep all tokens
	default:
		if len(parts) < 2 {
			return "", "", false
		}
		parts = parts[1:] // form factor is always first
	}

	switch ex.kind {
	case kindScan:
		if ex.splitWS {
			parts = strings.Fields(parts[0])
		}
		return scanCity(parts, ex.stopwords)

	case kindPostal:
		field := strings.TrimSpace(parts[0])
		if ex.joined {
			field = strings.Join(parts, " ")
		}
		m := postalRx.FindStringSubmatch(field)
		if m == nil {
			return "", "", false
		}
		city := m[3]
		if ex.titleCity {
			city = titler.String(city)
		}
		return strings.ToUpper(m[1]), city, true

	case kindCommaPostal:
		if len(parts) < 2 {
			return "", "", false
		}
		address := strings.TrimSpace(parts[0])
		city := parts[1]
		if len(city) > 6 {
			city = city[6:] // drop " 20260", the glued postal code
		}
		return address, strings.TrimSpace(city), true

	case kindCityFirst:
		return strings.ToUpper(strings.Join(parts[1:], " ")), titler.String(parts[0]), true

	case kindCityLast:
		return strings.ToUpper(parts[0]), titler.String(parts[len(parts)-1]), true

	case kindTail:
		address := strings.ReplaceAll(parts[0], "_", " ")
		city := titler.String(strings.Join(parts[1:], " "))
		if city == "" {
			return "", "", false
		}
		return address, city, true

	case kindIndexed:
		if len(parts) <= ex.cityIdx {
			return "", "", false
		}
		return strings.ToUpper(parts[ex.addrIdx]), titler.String(parts[ex.cityIdx]), true
	}
	return "", "", false
}

// scanCity walks the tokens right to left collecting the city, then
// treats the remainder as the address.
func scanCity(parts, stopwords []string) (string, string, bool) {
	cityStart := -1
	for i := len(parts) - 1; i >= 0; i-- {
		if !isCityToken(parts[i], stopwords) {
			break
		}
		cityStart = i
	}
	if cityStart == -1 {
		return "", "", false
	}
	city := strings.Join(parts[cityStart:], " ")
	address := strings.ToUpper(strings.Join(parts[:cityStart], " "))
	return address, city, true
}

func isCityToken(s string, stopwords []string) bool {
	if len([]rune(s)) <= 1 {
		return false
	}
	for _, sw := range stopwords {
		if s == sw {
			return false
		}
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

var (
	konzumTrailRx     = regexp.MustCompile(`,(\d+),(\d+),.*`)
	lidlTrailRx       = regexp.MustCompile(`_[0-9]_(\d{2}.\d{2}.\d{4})_.*`)
	plodineTrailRx    = regexp.MustCompile(`_(\d+)_(\d+)_(\d+)`)
	tommyTrailRx      = regexp.MustCompile(`, (\d+), (\d+), (\d+) (\d+)`)
	studenacTrailRx   = regexp.MustCompile(`-(T\d{3}|\d{4})-(\d+)-(\d+)-.*`)
	kauflandTrailRx   = regexp.MustCompile(`_(\d+)_(\d+)_(\d{1,2}-\d+)`)
	ktcTrailRx        = regexp.MustCompile(`-(PJ\w{2})-1-(\d+)-.*`)
	ribolaTrailRx     = regexp.MustCompile(`-(\d+)-(\d+)-(\d+)-.*`)
	trgocentarTrailRx = regexp.MustCompile(`_(P\d{3})_(\d+)_(\d+)`)
	metroTrailRx      = regexp.MustCompile(`.*_METRO_.*_S\d{2}_`)
	metroCodeRx       = regexp.MustCompile(`_(S\d{2})_`)
	sparTrailRx       = regexp.MustCompile(`_(\d{4,5})_[a-zA-Z]+_[a-zA-Z]+_.*`)
	krkTrailRx        = regexp.MustCompile(`_(\d+)_(\d+)_(\d+)_.*`)

	noiseWords  = []string{"bb", "BB"}
	ribolaStops = []string{"bb", "BB", "Medena", "rata"}
	trgocStops  = []string{"bb", "BB", "VRANKOVEC"}
)

var extractors = map[string]extractor{
	"KONZUM":       {kind: kindPostal, trailing: konzumTrailRx, delim: ",", titleCity: true},
	"LIDL":         {kind: kindPostal, trailing: lidlTrailRx, delim: "_", joined: true},
	"PLODINE":      {kind: kindPostal, trailing: plodineTrailRx, delim: "_", joined: true, titleCity: true},
	"TOMMY":        {kind: kindCommaPostal, trailing: tommyTrailRx, delim: ","},
	"STUDENAC":     {kind: kindScan, trailing: studenacTrailRx, delim: "_", gluedForm: true, stopwords: noiseWords},
	"KAUFLAND":     {kind: kindScan, trailing: kauflandTrailRx, delim: "_", stopwords: noiseWords},
	"KTC":          {kind: kindScan, trailing: ktcTrailRx, delim: "-", splitWS: true, stopwords: noiseWords},
	"RIBOLA":       {kind: kindScan, trailing: ribolaTrailRx, delim: "_", gluedForm: true, stopwords: ribolaStops},
	"TRGOCENTAR":   {kind: kindScan, trailing: trgocentarTrailRx, delim: "_", stopwords: trgocStops},
	"METRO":        {kind: kindTail, trailing: metroTrailRx, delim: ",_"},
	"SPAR":         {kind: kindCityFirst, trailing: sparTrailRx, delim: "_"},
	"TRGOVINA KRK": {kind: kindCityLast, trailing: krkTrailRx, delim: "_"},
	"NTL":          {kind: kindIndexed, delim: "_", addrIdx: 1, cityIdx: 2},
}

// StoreCode derives the chain's external store code from a file name.
// An empty return means the name carries no recognizable code.
func StoreCode(chain, filename string) string {
	switch chain {
	case "KONZUM":
		return token(filename, ",", -4)
	case "LIDL":
		// the code is the last three digits of the leading field
		t := token(filename, "_", 0)
		if r := []rune(t); len(r) >= 3 {
			return string(r[len(r)-3:])
		}
		return t
	case "STUDENAC":
		return token(filename, "-", 2)
	case "VRUTAK":
		return token(filename, "-", 3)
	case "DM":
		// one national price file, no per-store breakdown
		return "1"
	case "KTC":
		return token(filename, "-", -4)
	case "TOMMY":
		return strings.TrimSpace(token(filename, ",", 3))
	case "NTL":
		return token(filename, "_", -6)
	case "KAUFLAND":
		return rxGroup(kauflandTrailRx, filename, 1)
	case "PLODINE":
		return rxGroup(plodineTrailRx, filename, 1)
	case "RIBOLA":
		return rxGroup(ribolaTrailRx, filename, 1)
	case "TRGOCENTAR":
		return rxGroup(trgocentarTrailRx, filename, 1)
	case "TRGOVINA KRK":
		return rxGroup(krkTrailRx, filename, 1)
	case "SPAR":
		return rxGroup(sparTrailRx, filename, 1)
	case "METRO":
		return rxGroup(metroCodeRx, filename, 1)
	default:
		return genericCode(filename)
	}
}

// BatchNumber derives the chain-assigned publication number from a
// file name, when the chain publishes one.
func BatchNumber(chain, filename string) string {
	switch chain {
	case "KONZUM":
		return token(filename, ",", -3)
	case "STUDENAC":
		return token(filename, "-", 3)
	case "VRUTAK":
		return token(filename, "-", -3)
	case "DM":
		return token(filename, "-", -2)
	case "TOMMY":
		return strings.TrimSpace(token(filename, ",", -2))
	case "NTL":
		return token(filename, "_", 4)
	case "KTC":
		return rxGroup(ktcTrailRx, filename, 2)
	case "PLODINE":
		return rxGroup(plodineTrailRx, filename, 2)
	case "RIBOLA":
		return rxGroup(ribolaTrailRx, filename, 2)
	case "TRGOCENTAR":
		return rxGroup(trgocentarTrailRx, filename, 2)
	case "TRGOVINA KRK":
		return rxGroup(krkTrailRx, filename, 2)
	}
	return ""
}

// FormToken returns the raw form-factor token of a file name. Mapping
// to a known form factor is the caller's concern.
func FormToken(chain, filename string) string {
	switch chain {
	case "KONZUM", "TOMMY":
		return token(filename, ",", 0)
	case "LIDL":
		f := strings.Fields(token(filename, "_", 0))
		if len(f) == 0 {
			return ""
		}
		return f[0]
	case "STUDENAC", "KTC", "RIBOLA":
		return token(filename, "-", 0)
	case "VRUTAK":
		return token(filename, "-", 1)
	case "METRO":
		head, _, _ := strings.Cut(filename, "_METRO_")
		return head
	default:
		return token(filename, "_", 0)
	}
}

// token indexes the fields of a delimited name, negative indices count
// from the end.
func token(s, delim string, idx int) string {
	parts := strings.Split(s, delim)
	if idx < 0 {
		idx += len(parts)
	}
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return parts[idx]
}

func rxGroup(rx *regexp.Regexp, s string, group int) string {
	m := rx.FindStringSubmatch(s)
	if m == nil || group >= len(m) {
		return ""
	}
	return m[group]
}

var digitRunRx = regexp.MustCompile(`\d+`)

// genericCode covers chains with no published file-name scheme: the
// rightmost short digit run that is not a date or timestamp.
func genericCode(filename string) string {
	runs := digitRunRx.FindAllString(filename, -1)
	for i := len(runs) - 1; i >= 0; i-- {
		if len(runs[i]) <= 6 {
			return runs[i]
		}
	}
	return ""
}
