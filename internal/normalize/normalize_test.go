package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateDecimals(t *testing.T) {
	cases := map[string]string{
		"2.9999":  "2.99",
		"2.345":   "2.34",
		"2.3":     "2.30",
		"2.":      "2.00",
		"2":       "2",
		"1.2.3":   "1.2.3",
		"":        "",
		"0.10":    "0.10",
		"-3.4567": "-3.45",
	}
	for in, want := range cases {
		assert.Equal(t, want, TruncateDecimals(in), "input %q", in)
	}
}

func TestTruncateDecimalsIdempotent(t *testing.T) {
	for _, in := range []string{"2.9999", "2.3", "17", "1.2.3"} {
		once := TruncateDecimals(in)
		assert.Equal(t, once, TruncateDecimals(once))
	}
}

func TestParsePrice(t *testing.T) {
	p := ParsePrice("2,345")
	require.NotNil(t, p)
	assert.True(t, p.Equal(decimal.RequireFromString("2.35")))

	p = ParsePrice("-1,50")
	require.NotNil(t, p)
	assert.True(t, p.Equal(decimal.RequireFromString("1.50")), "leading minus dropped")

	assert.Nil(t, ParsePrice(""))
	assert.Nil(t, ParsePrice("NaN"))
	assert.Nil(t, ParsePrice("MPC"))
}

func TestAddLeadingZero(t *testing.T) {
	assert.Equal(t, "0,99", AddLeadingZero(",99"))
	assert.Equal(t, "1,99", AddLeadingZero("1,99"))
}

func TestStripEuro(t *testing.T) {
	assert.Equal(t, "4.49", StripEuro("4.49 €"))
	assert.Equal(t, "4.49", StripEuro("4.49€"))
	assert.Equal(t, "4.49", StripEuro("4.49"))
	assert.Equal(t, "€4.49", StripEuro("€4.49"), "only a trailing sign is stripped")
}

func TestFixName(t *testing.T) {
	assert.Equal(t, "VINO DINGAČ 0,75 L ROSO", FixName("TOMMY", "VINO DINGAÈ 0,75 L"))
	assert.Equal(t, "PODMETAČ IBAMBUS ZA ČAŠE 4/1", FixName("BOSO", "PODMETA? IBAMBUS ZA ?AŠE 4/1"))
	assert.Equal(t, "KEKS ČOKO", FixName("BOSO", "Keks Èoko"), "char repair uppercases")
	assert.Equal(t, "ŽVAKAĆA GUM.OR.CARE 3*23,8G 71,4G", FixName("EUROSPIN", "9vakaća gum"))
	assert.Equal(t, "MLIJEKO 1L", FixName("KONZUM", "MLIJEKO 1L"))
}

func TestFixCode(t *testing.T) {
	code, ok := FixCode("TRGOVINA KRK", "8,00741E+12")
	assert.False(t, ok)
	assert.Empty(t, code)

	code, ok = FixCode("ŽABAC", "0,")
	assert.True(t, ok)
	assert.Equal(t, "0", code)

	code, ok = FixCode("KONZUM", "12345")
	assert.True(t, ok)
	assert.Equal(t, "12345", code)
}

func TestFixAnchorPrice(t *testing.T) {
	assert.Equal(t, "4.49", FixAnchorPrice("KAUFLAND", "MPC4.7.25"))
	assert.Equal(t, "3.99", FixAnchorPrice("KAUFLAND", "MPC na 2.5.=3.99€"))
	assert.Equal(t, "2.50", FixAnchorPrice("KONZUM", "2.50"))
}

func TestIsNullLiteral(t *testing.T) {
	for _, s := range []string{"", "nan", "NaN", "None", "NONE", "none", "0", "#", " nan "} {
		assert.True(t, IsNullLiteral(s), "%q", s)
	}
	assert.False(t, IsNullLiteral("0,5"))
	assert.False(t, IsNullLiteral("MLIJEKO"))
}
