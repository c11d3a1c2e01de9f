package filemeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressCityPostal(t *testing.T) {
	addr, city, ok := AddressCity("PLODINE", "HIPERMARKET_ANTE_STARCEVICA_21_10290_ZAPRESIC_064_135_26092025022535")
	assert.True(t, ok)
	assert.Equal(t, "ANTE STARCEVICA 21", addr)
	assert.Equal(t, "Zapresic", city)

	addr, city, ok = AddressCity("KONZUM", "HIPERMARKET,BJELOVARSKA 48B 10360 SESVETE,0201,25805,26.09.2025, 05-21")
	assert.True(t, ok)
	assert.Equal(t, "BJELOVARSKA 48B", addr)
	assert.Equal(t, "Sesvete", city)

	addr, city, ok = AddressCity("LIDL", "Supermarket 105_Zeleno polje_8 A_31000_Osijek_1_26.09.2025_7.15h")
	assert.True(t, ok)
	assert.Equal(t, "ZELENO POLJE 8 A", addr)
	assert.Equal(t, "Osijek", city)
}

func TestAddressCityScan(t *testing.T) {
	addr, city, ok := AddressCity("STUDENAC", "SUPERMARKET-Bijela_uvala_5_FUNTANA-T598-143-2025-10-04-07-00-16-011151")
	assert.True(t, ok)
	assert.Equal(t, "BIJELA UVALA 5", addr)
	assert.Equal(t, "FUNTANA", city)

	addr, city, ok = AddressCity("KAUFLAND", "Hipermarket_Jurja_Zakna_3_Pula_2630_30092025_7-30")
	assert.True(t, ok)
	assert.Equal(t, "JURJA ZAKNA 3", addr)
	assert.Equal(t, "Pula", city)

	addr, city, ok = AddressCity("KTC", "TRGOVINA-BOBOVJE 52  C KRAPINA-PJ77-1-20250926-071002")
	assert.True(t, ok)
	assert.Equal(t, "BOBOVJE 52 C", addr)
	assert.Equal(t, "KRAPINA", city)

	addr, city, ok = AddressCity("RIBOLA", "HIPERMARKET-Cesta_dr._Franje_Tudmana_7_Kastel_Sucurac-100-135-2025-09-26-06-56-50-093226")
	assert.True(t, ok)
	assert.Equal(t, "CESTA DR. FRANJE TUDMANA 7", addr)
	assert.Equal(t, "Kastel Sucurac", city)

	addr, city, ok = AddressCity("TRGOCENTAR", "SUPERMARKET_103_BRIGADE_8_ZABOK_P080_144_041020250744")
	assert.True(t, ok)
	assert.Equal(t, "103 BRIGADE 8", addr)
	assert.Equal(t, "ZABOK", city)
}

func TestAddressCityFixed(t *testing.T) {
	addr, city, ok := AddressCity("TOMMY", "SUPERMARKET, ANTE STARCEVICA 6, 20260 KORCULA, 10180, 144, 20251004 0530")
	assert.True(t, ok)
	assert.Equal(t, "ANTE STARCEVICA 6", addr)
	assert.Equal(t, "KORCULA", city)

	addr, city, ok = AddressCity("METRO", "cash_and_carry_prodavaonica_METRO_20250926T0630_S10_JANKOMIR_31,_ZAGREB")
	assert.True(t, ok)
	assert.Equal(t, "JANKOMIR 31", addr)
	assert.Equal(t, "Zagreb", city)

	addr, city, ok = AddressCity("SPAR", "hipermarket_donji_stupnik_gospodarska_ulica_5_8708_interspar_zg_emmez_stup_0148_20250926_0330")
	assert.True(t, ok)
	assert.Equal(t, "STUPNIK GOSPODARSKA ULICA 5", addr)
	assert.Equal(t, "Donji", city)

	addr, city, ok = AddressCity("TRGOVINA KRK", "Supermarket_Andrije Gredicaka 12b_OROSLAVJE_121180_2808_01102025_07_28_25")
	assert.True(t, ok)
	assert.Equal(t, "ANDRIJE GREDICAKA 12B", addr)
	assert.Equal(t, "Oroslavje", city)

	addr, city, ok = AddressCity("NTL", "supermarket_Vukovarska 17_osijek_31000_135_26092025")
	assert.True(t, ok)
	assert.Equal(t, "VUKOVARSKA 17", addr)
	assert.Equal(t, "Osijek", city)
}

func TestAddressCityUnresolvable(t *testing.T) {
	_, _, ok := AddressCity("STUDENAC", "garbage-without-the-usual-shape")
	assert.False(t, ok)

	// no extraction rule for the chain at all
	_, _, ok = AddressCity("BOSO", "cjenik_26.09.2025")
	assert.False(t, ok)

	// trailing matches but no alphabetic city token
	_, _, ok = AddressCity("KAUFLAND", "Hipermarket_17_3_bb_2630_30092025_7-30")
	assert.False(t, ok)
}

func TestStoreCode(t *testing.T) {
	assert.Equal(t, "0201", StoreCode("KONZUM", "HIPERMARKET,BJELOVARSKA 48B 10360 SESVETE,0201,25805,26.09.2025, 05-21"))
	assert.Equal(t, "105", StoreCode("LIDL", "Supermarket 105_Zeleno polje_8 A_31000_Osijek_1_26.09.2025_7.15h"))
	assert.Equal(t, "T598", StoreCode("STUDENAC", "SUPERMARKET-Bijela_uvala_5_FUNTANA-T598-143-2025-10-04-07-00-16-011151"))
	assert.Equal(t, "1", StoreCode("DM", "nove-oznake-cijena-27-9-2025"))
	assert.Equal(t, "PJ77", StoreCode("KTC", "TRGOVINA-BOBOVJE 52  C KRAPINA-PJ77-1-20250926-071002"))
	assert.Equal(t, "10180", StoreCode("TOMMY", "SUPERMARKET, ANTE STARCEVICA 6, 20260 KORCULA, 10180, 144, 20251004 0530"))
	assert.Equal(t, "064", StoreCode("PLODINE", "HIPERMARKET_ANTE_STARCEVICA_21_10290_ZAPRESIC_064_135_26092025022535"))
	assert.Equal(t, "2630", StoreCode("KAUFLAND", "Hipermarket_Jurja_Zakna_3_Pula_2630_30092025_7-30"))
	assert.Equal(t, "S10", StoreCode("METRO", "cash_and_carry_prodavaonica_METRO_20250926T0630_S10_JANKOMIR_31,_ZAGREB"))
	assert.Equal(t, "8708", StoreCode("SPAR", "hipermarket_donji_stupnik_gospodarska_ulica_5_8708_interspar_zg_emmez_stup_0148_20250926_0330"))
	assert.Equal(t, "121180", StoreCode("TRGOVINA KRK", "Supermarket_Andrije Gredicaka 12b_OROSLAVJE_121180_2808_01102025_07_28_25"))
	assert.Equal(t, "P080", StoreCode("TRGOCENTAR", "SUPERMARKET_103_BRIGADE_8_ZABOK_P080_144_041020250744"))
}

func TestBatchNumber(t *testing.T) {
	assert.Equal(t, "25805", BatchNumber("KONZUM", "HIPERMARKET,BJELOVARSKA 48B 10360 SESVETE,0201,25805,26.09.2025, 05-21"))
	assert.Equal(t, "143", BatchNumber("STUDENAC", "SUPERMARKET-Bijela_uvala_5_FUNTANA-T598-143-2025-10-04-07-00-16-011151"))
	assert.Equal(t, "144", BatchNumber("TOMMY", "SUPERMARKET, ANTE STARCEVICA 6, 20260 KORCULA, 10180, 144, 20251004 0530"))
	assert.Equal(t, "135", BatchNumber("PLODINE", "HIPERMARKET_ANTE_STARCEVICA_21_10290_ZAPRESIC_064_135_26092025022535"))
	assert.Equal(t, "", BatchNumber("LIDL", "Supermarket 105_Zeleno polje_8 A_31000_Osijek_1_26.09.2025_7.15h"), "archive name carries the batch instead")
}

func TestFormToken(t *testing.T) {
	assert.Equal(t, "HIPERMARKET", FormToken("KONZUM", "HIPERMARKET,BJELOVARSKA 48B 10360 SESVETE,0201,25805,26.09.2025, 05-21"))
	assert.Equal(t, "Supermarket", FormToken("LIDL", "Supermarket 105_Zeleno polje_8 A_31000_Osijek_1_26.09.2025_7.15h"))
	assert.Equal(t, "SUPERMARKET", FormToken("STUDENAC", "SUPERMARKET-Bijela_uvala_5_FUNTANA-T598-143-2025-10-04-07-00-16-011151"))
	assert.Equal(t, "hipermarket", FormToken("VRUTAK", "cjenik-hipermarket-vrutak-21-135-20250926-0630"))
	assert.Equal(t, "cash_and_carry_prodavaonica", FormToken("METRO", "cash_and_carry_prodavaonica_METRO_20250926T0630_S10_JANKOMIR_31,_ZAGREB"))
}
