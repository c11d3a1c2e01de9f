// Package vendors holds the per-chain source configuration: where the
// price lists are published, in what format, and how the positional
// columns of each chain's files map onto the canonical record shape.
package vendors

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Format is the delivery format of a chain's price files.
type Format string

const (
	FormatCSV  Format = "CSV"
	FormatXLSX Format = "XLSX"
	FormatXML  Format = "XML"
)

// Discovery names the listing strategy an adapter uses to locate the
// files for a publication date.
type Discovery string

const (
	DiscoveryStatic    Discovery = "static"     // anchors on a plain listing page
	DiscoveryPaginated Discovery = "paginated"  // listing split across numbered pages
	DiscoveryAjaxNonce Discovery = "ajax-nonce" // nonce-guarded POST per store
	DiscoveryJSON      Discovery = "json"       // JSON API endpoint
	DiscoveryArchive   Discovery = "archive"    // one zip per date, files inside
	DiscoveryTwoLevel  Discovery = "two-level"  // per-store subpages
)

// ColumnMap gives the positional index of each canonical field in a
// parsed table row. -1 marks a field the chain does not publish.
type ColumnMap struct {
	Name        int `json:"name"`
	Code        int `json:"code"`
	Brand       int `json:"brand"`
	NetQuantity int `json:"net_quantity"`
	Unit        int `json:"unit"`
	Retail      int `json:"retail"`
	PerUnit     int `json:"per_unit"`
	Special     int `json:"special"`
	Lowest30    int `json:"lowest30"`
	Anchor      int `json:"anchor"`
	Barcode     int `json:"barcode"`
	Category    int `json:"category"`
}

// Canonical is the column order most chains publish: name, code,
// brand, quantity, unit, the five prices, barcode, category.
func Canonical() ColumnMap {
	return ColumnMap{
		Name: 0, Code: 1, Brand: 2, NetQuantity: 3, Unit: 4,
		Retail: 5, PerUnit: 6, Special: 7, Lowest30: 8, Anchor: 9,
		Barcode: 10, Category: 11,
	}
}

// XMLShape describes one repeated-record layout inside an XML feed.
type XMLShape struct {
	Record  string    `json:"record"`
	Fields  []string  `json:"fields"`
	Columns ColumnMap `json:"columns"`
}

// Descriptor is the immutable configuration of one chain. Loaded at
// startup and read-only afterwards.
type Descriptor struct {
	Name         string              `json:"name"`
	BaseURL      string              `json:"base_url"`
	ListURL      string              `json:"list_url"`
	Format       Format              `json:"format"`
	Separator    rune                `json:"separator"`
	PriceColumns []string            `json:"price_columns"`
	SkipRows     int                 `json:"skip_rows"`
	Columns      ColumnMap           `json:"columns"`
	XML          *XMLShape           `json:"xml,omitempty"`
	XMLVariants  map[string]XMLShape `json:"xml_variants,omitempty"`
	Discovery    Discovery           `json:"discovery"`
	AutoRegister bool                `json:"auto_register"`
}

// Registry maps chain name to descriptor.
type Registry map[string]Descriptor

// Lookup returns the descriptor for a chain name.
func (r Registry) Lookup(name string) (Descriptor, error) {
	d, ok := r[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown vendor %q", name)
	}
	return d, nil
}

// Names returns the registered chain names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadFile reads descriptor overrides from a JSON file and merges them
// over the built-in registry, keyed by name. New chains can be added
// without touching code.
func LoadFile(path string) (Registry, error) {
	reg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vendor registry: %w", err)
	}
	var overrides []Descriptor
	if err := json.Unmarshal(b, &overrides); err != nil {
		return nil, fmt.Errorf("parse vendor registry: %w", err)
	}
	for _, d := range overrides {
		reg[d.Name] = d
	}
	return reg, nil
}

// studenacFields is the tag order of the ProdajniObjekt feeds; Ribola
// publishes the same shape.
var studenacFields = []string{
	"NazivProizvoda", "SifraProizvoda", "MarkaProizvoda",
	"NetoKolicina", "JedinicaMjere",
	"MaloprodajnaCijena", "CijenaZaJedinicuMjere", "MaloprodajnaCijenaAkcija",
	"NajnizaCijena", "SidrenaCijena",
	"Barkod", "KategorijeProizvoda",
}

// Default builds the built-in chain registry.
func Default() Registry {
	reg := Registry{}
	add := func(d Descriptor) { reg[d.Name] = d }

	add(Descriptor{
		Name:      "BOSO",
		BaseURL:   "https://www.boso.hr",
		ListURL:   "https://www.boso.hr/cjenik",
		Format:    FormatCSV,
		Separator: ';',
		PriceColumns: []string{
			"MPC",
			"cijena za jedinicu mjere",
			"MPC za vrijeme posebnog oblika prodaje",
			"Najniža cijena u poslj. 30 dana",
			"sidrena cijena na 2.5.2025",
		},
		Columns:   Canonical(),
		Discovery: DiscoveryAjaxNonce,
	})

	add(Descriptor{
		Name:    "DM",
		BaseURL: "https://www.dm.hr",
		ListURL: "https://content.services.dmtech.com/rootpage-dm-shop-hr-hr/novo/promocije/nove-oznake-cijena-i-vazeci-cjenik-u-dm-u-2906632",
		Format:  FormatXLSX,
		PriceColumns: []string{
			"MPC",
			"cijena za jedinicu mjere",
			"MPC za vrijeme posebnog oblika prodaje (Rasprodaja proizvoda koji izlaze iz asortimana)",
			"Najniža cijena u posljednjih 30 dana prije rasprodaje",
			"sidrena cijena na 2.5.2025. ili na datum ulistanja",
		},
		SkipRows: 2,
		Columns: ColumnMap{
			Name: 0, Code: 1, Brand: 2, Barcode: 3, Category: 4,
			NetQuantity: 5, Unit: 6, PerUnit: 7,
			Retail: 9, Special: 10, Lowest30: 11, Anchor: 12,
		},
		Discovery: DiscoveryJSON,
	})

	add(Descriptor{
		Name:      "EUROSPIN",
		BaseURL:   "https://www.eurospin.hr",
		ListURL:   "https://www.eurospin.hr/cjenik",
		Format:    FormatCSV,
		Separator: ';',
		PriceColumns: []string{
			"MALOPROD.CIJENA(EUR)",
			"CIJENA_ZA_JEDINICU_MJERE",
			"MPC_POSEB.OBLIK_PROD",
			"NAJNIŽA_MPC_U_30DANA",
			"SIDRENA_CIJENA",
		},
		Columns:   Canonical(),
		Discovery: DiscoveryArchive,
	})

	add(Descriptor{
		Name:      "KAUFLAND",
		BaseURL:   "https://www.kaufland.hr",
		ListURL:   "https://www.kaufland.hr/akcije-novosti/popis-mpc.assetSearch.id=assetList_1599847924.json",
		Format:    FormatCSV,
		Separator: '\t',
		PriceColumns: []string{
			"maloprod.cijena(EUR)",
			"cijena jed.mj.(EUR)",
			"MPC poseb.oblik prod",
			"Najniža MPC u 30dana",
			"Sidrena cijena",
		},
		Columns:      Canonical(),
		Discovery:    DiscoveryJSON,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:      "KONZUM",
		BaseURL:   "https://www.konzum.hr",
		ListURL:   "https://www.konzum.hr/cjenici",
		Format:    FormatCSV,
		Separator: ',',
		PriceColumns: []string{
			"MALOPRODAJNA CIJENA",
			"CIJENA ZA JEDINICU MJERE",
			"MPC ZA VRIJEME POSEBNOG OBLIKA PRODAJE",
			"NAJNIŽA CIJENA U POSLJEDNIH 30 DANA",
			"SIDRENA CIJENA NA 2.5.2025",
		},
		Columns:      Canonical(),
		Discovery:    DiscoveryPaginated,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:      "KTC",
		BaseURL:   "https://www.ktc.hr",
		ListURL:   "https://www.ktc.hr/cjenici",
		Format:    FormatCSV,
		Separator: ';',
		PriceColumns: []string{
			"Maloprodajna cijena",
			"Cijena za jedinicu mjere",
			"Najniža cijena u posljednjih 30 dana",
			"MPC za vrijeme posebnog oblika prodaje",
		},
		Columns: ColumnMap{
			Name: 0, Code: 1, Brand: 2, NetQuantity: 3, Unit: 4,
			Retail: 5, PerUnit: 6, Barcode: 7, Category: 8,
			Lowest30: 9, Special: 10, Anchor: -1,
		},
		Discovery:    DiscoveryTwoLevel,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:      "LIDL",
		BaseURL:   "https://tvrtka.lidl.hr",
		ListURL:   "https://tvrtka.lidl.hr/cijene",
		Format:    FormatCSV,
		Separator: ',',
		PriceColumns: []string{
			"MALOPRODAJNA_CIJENA",
			"CIJENA_ZA_JEDINICU_MJERE",
			"MPC_ZA_VRIJEME_POSEBNOG_OBLIKA_PRODAJE",
			"NAJNIZA_CIJENA_U_POSLJ._30_DANA",
			"Sidrena_cijena_na_02.05.2025",
		},
		Columns: ColumnMap{
			Name: 0, Code: 1, NetQuantity: 2, Unit: 3, Brand: 4,
			Retail: 5, Special: 6, Lowest30: 7, PerUnit: 8,
			Barcode: 9, Category: 10, Anchor: 11,
		},
		Discovery:    DiscoveryArchive,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:      "METRO",
		BaseURL:   "https://www.metro-cc.hr",
		ListURL:   "https://metrocjenik.com.hr",
		Format:    FormatCSV,
		Separator: ',',
		PriceColumns: []string{
			"MPS",
			"CIJENA_PO_MJERI",
			"POSEBNA_PRODAJA",
			"NAJNIZA_30_DANA",
			"SIDRENA_02_05",
		},
		Columns:      Canonical(),
		Discovery:    DiscoveryStatic,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:      "NTL",
		BaseURL:   "https://ntl.hr",
		ListURL:   "https://ntl.hr/cjenik",
		Format:    FormatCSV,
		Separator: ';',
		PriceColumns: []string{
			"Maloprodajna cijena",
			"Cijena za jedinicu mjere",
			"MPC za vrijeme posebnog oblika prodaje",
			"Najniža cijena u poslj.30 dana",
			"Sidrena cijena na 2.5.2025",
		},
		Columns:      Canonical(),
		Discovery:    DiscoveryStatic,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:      "PLODINE",
		BaseURL:   "https://www.plodine.hr",
		ListURL:   "https://www.plodine.hr/info-o-cijenama",
		Format:    FormatCSV,
		Separator: ';',
		PriceColumns: []string{
			"Maloprodajna cijena",
			"Cijena po JM",
			"MPC za vrijeme posebnog oblika prodaje",
			"Najniza cijena u poslj. 30 dana",
			"Sidrena cijena na 2.5.2025",
		},
		Columns:      Canonical(),
		Discovery:    DiscoveryArchive,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:    "RIBOLA",
		BaseURL: "https://ribola.hr",
		ListURL: "https://ribola.hr/ribola-cjenici",
		Format:  FormatXML,
		PriceColumns: []string{
			"MaloprodajnaCijena",
			"CijenaPoJedinici",
			"MaloprodajnaCijenaAkcija",
			"NajnizaCijena",
			"SidrenaCijena",
		},
		XML: &XMLShape{
			Record:  "Proizvod",
			Fields:  studenacFields,
			Columns: Canonical(),
		},
		Discovery:    DiscoveryTwoLevel,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:      "SPAR",
		BaseURL:   "https://www.spar.hr",
		ListURL:   "https://www.spar.hr/usluge/cjenici",
		Format:    FormatCSV,
		Separator: ';',
		PriceColumns: []string{
			"MPC (EUR)",
			"cijena za jedinicu mjere (EUR)",
			"MPC za vrijeme posebnog oblika prodaje (EUR)",
			"Najniža cijena u posljednjih 30 dana (EUR)",
			"sidrena cijena na 2.5.2025. (EUR)",
		},
		Columns:      Canonical(),
		Discovery:    DiscoveryJSON,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:    "STUDENAC",
		BaseURL: "https://www.studenac.hr",
		ListURL: "https://www.studenac.hr/popis-maloprodajnih-cijena",
		Format:  FormatXML,
		PriceColumns: []string{
			"MaloprodajnaCijena",
			"CijenaPoJedinici",
			"MaloprodajnaCijenaAkcija",
			"NajnizaCijena",
			"SidrenaCijena",
		},
		XML: &XMLShape{
			Record:  "Proizvod",
			Fields:  studenacFields,
			Columns: Canonical(),
		},
		Discovery:    DiscoveryArchive,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:      "TOMMY",
		BaseURL:   "https://www.tommy.hr",
		ListURL:   "https://www.tommy.hr/objava-cjenika",
		Format:    FormatCSV,
		Separator: ',',
		PriceColumns: []string{
			"MPC", "MPC_POSEBNA_PRODAJA", "CIJENA_PO_JM", "MPC_NAJNIZA_30", "MPC_020525",
		},
		Columns: ColumnMap{
			Barcode: 0, Code: 1, Name: 2, Brand: 3, Category: 4,
			Unit: 5, NetQuantity: 6,
			Retail: 7, Special: 8, PerUnit: 9, Lowest30: 10, Anchor: 11,
		},
		Discovery:    DiscoveryJSON,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:    "TRGOCENTAR",
		BaseURL: "https://trgocentar.com",
		ListURL: "https://trgocentar.com/Trgovine-cjenik",
		Format:  FormatXML,
		PriceColumns: []string{
			"mpc", "c_jmj", "mpc_pop", "c_najniza_30", "c_020525",
		},
		XML: &XMLShape{
			Record: "item",
			Fields: []string{
				"naziv", "sifra", "marka", "neto_kolicina", "jedinica_mjere",
				"mpc", "c_jmj", "mpc_pop", "c_najniza_30", "c_020525",
				"barkod", "kategorija",
			},
			Columns: Canonical(),
		},
		Discovery:    DiscoveryStatic,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:      "TRGOVINA KRK",
		BaseURL:   "https://trgovina-krk.hr",
		ListURL:   "https://trgovina-krk.hr/objava-cjenika",
		Format:    FormatCSV,
		Separator: ';',
		PriceColumns: []string{
			"Maloprodajna cijena",
			"Cijena za jedinicu mjere",
			"MPC za vrijeme posebnog oblika prodaje",
			"Najniža cijena u poslj.30 dana",
			"Sidrena cijena na 2.5.2025",
		},
		Columns:      Canonical(),
		Discovery:    DiscoveryStatic,
		AutoRegister: true,
	})

	add(Descriptor{
		Name:    "VRUTAK",
		BaseURL: "https://www.vrutak.hr",
		ListURL: "https://www.vrutak.hr/cjenik-svih-artikala",
		Format:  FormatXML,
		XMLVariants: map[string]XMLShape{
			"supermarket": {
				Record: "item",
				Fields: []string{
					"naziv", "sifra", "marka", "nettokolicina", "mjera",
					"mpcijena", "mpcijenamjera", "barkod", "kategorija",
				},
				Columns: ColumnMap{
					Name: 0, Code: 1, Brand: 2, NetQuantity: 3, Unit: 4,
					Retail: 5, PerUnit: 6, Special: -1, Lowest30: -1, Anchor: -1,
					Barcode: 7, Category: 8,
				},
			},
			"hipermarket": {
				Record: "item",
				Fields: []string{
					"naziv", "sifra", "marka", "nettokolicina", "mjera",
					"mpcijena", "mpcijenamjera", "mpcijenasidrena",
					"barkod", "kategorija",
				},
				Columns: ColumnMap{
					Name: 0, Code: 1, Brand: 2, NetQuantity: 3, Unit: 4,
					Retail: 5, PerUnit: 6, Special: -1, Lowest30: -1, Anchor: 7,
					Barcode: 8, Category: 9,
				},
			},
		},
		Discovery: DiscoveryStatic,
	})

	add(Descriptor{
		Name:      "ŽABAC",
		BaseURL:   "https://zabacfoodoutlet.hr",
		ListURL:   "https://zabacfoodoutlet.hr/cjenik",
		Format:    FormatCSV,
		Separator: ',',
		PriceColumns: []string{
			"Mpc", "Najniža cijena u posljednjih 30 dana", "Sidrena cijena na 2.5.2025",
		},
		Columns: ColumnMap{
			Name: 0, Code: 1, Brand: 2, NetQuantity: 3, Unit: 4,
			Retail: 5, PerUnit: -1, Special: -1, Lowest30: 6, Anchor: 7,
			Barcode: 8, Category: 9,
		},
		Discovery: DiscoveryStatic,
	})

	return reg
}
