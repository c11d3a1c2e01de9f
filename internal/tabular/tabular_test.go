package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSVSemicolon(t *testing.T) {
	in := []byte("NAZIV;SIFRA;CIJENA\nMLIJEKO 2,8%;123;1,19\nKRUH;456;0,99\n")
	tab, err := ReadCSV(in, ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"NAZIV", "SIFRA", "CIJENA"}, tab.Header)
	require.Len(t, tab.Rows, 2)
	assert.Equal(t, "MLIJEKO 2,8%", tab.Rows[0][0])
}

func TestReadCSVRaggedRows(t *testing.T) {
	in := []byte("A;B;C\n1;2\n1;2;3;4\n")
	tab, err := ReadCSV(in, ';')
	require.NoError(t, err)
	require.Len(t, tab.Rows, 2)
	assert.Equal(t, "", tab.Cell(tab.Rows[0], 2))
	assert.Equal(t, "3", tab.Cell(tab.Rows[1], 2))
}

func TestReadCSVTab(t *testing.T) {
	in := []byte("NAZIV\tCIJENA\nSIR\t4,99\n")
	tab, err := ReadCSV(in, '\t')
	require.NoError(t, err)
	assert.Equal(t, "4,99", tab.Rows[0][1])
}

func TestHeaderIndex(t *testing.T) {
	tab := &Table{Header: []string{"NAZIV", "CIJENA"}}
	assert.Equal(t, 1, tab.HeaderIndex("CIJENA"))
	assert.Equal(t, -1, tab.HeaderIndex("BARKOD"))
}

func TestReadXLSXSkipRows(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Cjenik"},
		{"27.09.2025"},
		{"NAZIV", "SIFRA", "CIJENA"},
		{"PASTA ZA ZUBE", "111", "2.49"},
		{"SAMPON", "222", "3.99"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tab, err := ReadXLSX(buf.Bytes(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"NAZIV", "SIFRA", "CIJENA"}, tab.Header)
	require.Len(t, tab.Rows, 2)
	assert.Equal(t, "SAMPON", tab.Rows[1][0])
}

func TestReadXMLNestedRecords(t *testing.T) {
	in := []byte(`<?xml version="1.0"?>
<ProdajniObjekt>
  <Oznaka>T598</Oznaka>
  <Proizvodi>
    <Proizvod>
      <NazivProizvoda>MLIJEKO TRAJNO 2,8%</NazivProizvoda>
      <SifraProizvoda>100123</SifraProizvoda>
      <MaloprodajnaCijena>1,19</MaloprodajnaCijena>
    </Proizvod>
    <Proizvod>
      <NazivProizvoda>KRUH POLUBIJELI</NazivProizvoda>
      <SifraProizvoda>100456</SifraProizvoda>
      <MaloprodajnaCijena>0,99</MaloprodajnaCijena>
    </Proizvod>
  </Proizvodi>
</ProdajniObjekt>`)

	tab, err := ReadXML(in, "Proizvod", []string{"NazivProizvoda", "SifraProizvoda", "MaloprodajnaCijena", "Barkod"})
	require.NoError(t, err)
	require.Len(t, tab.Rows, 2)
	assert.Equal(t, "MLIJEKO TRAJNO 2,8%", tab.Rows[0][0])
	assert.Equal(t, "100456", tab.Rows[1][1])
	assert.Equal(t, "", tab.Rows[0][3], "missing child yields empty cell")
}

func TestReadXMLItemRecords(t *testing.T) {
	in := []byte(`<root><item><naziv>SOK NARANCA 1L</naziv><sifra>555</sifra><mpcijena>1.85</mpcijena></item></root>`)
	tab, err := ReadXML(in, "item", []string{"naziv", "sifra", "mpcijena"})
	require.NoError(t, err)
	require.Len(t, tab.Rows, 1)
	assert.Equal(t, []string{"SOK NARANCA 1L", "555", "1.85"}, tab.Rows[0])
}
