package encfix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectUTF8(t *testing.T) {
	det := Detect([]byte("NAZIV;ŠIFRA;CIJENA\nČAŠA;123;1,99\n"))
	assert.Equal(t, "utf-8", det.Encoding)
	assert.InDelta(t, 0.99, det.Confidence, 0.01)
}

func TestDetectASCII(t *testing.T) {
	det := Detect([]byte("NAZIV;SIFRA\nCASA;123\n"))
	assert.Equal(t, "ascii", det.Encoding)
}

func TestDetectLegacy(t *testing.T) {
	// "ČAŠA" in windows-1250 bytes
	det := Detect([]byte{0xC8, 'A', 0x8A, 'A', ';', '1'})
	assert.Equal(t, "windows-1252", det.Encoding)
	assert.Greater(t, det.Confidence, 0.6)
}

func TestNormalizePassthrough(t *testing.T) {
	in := []byte("NAZIV;CIJENA\nMLIJEKO;1,19\n")
	out, det, corrected, err := Normalize("cjenik.csv", in)
	require.NoError(t, err)
	assert.False(t, corrected)
	assert.Equal(t, in, out)
	assert.Equal(t, "ascii", det.Encoding)
}

func TestNormalizeRepairsDiacritics(t *testing.T) {
	// windows-1250 "ŠĆŽčćž" style content seen through the wrong code page
	in := []byte{0x8A, 'I', 'B', 'E', 'N', 'I', 'K', ';', 0xE8, 'a', 0x9A, 'a'}
	out, _, corrected, err := Normalize("cjenik.csv", in)
	require.NoError(t, err)
	assert.True(t, corrected)
	assert.Equal(t, "ŠIBENIK;čaša", string(out))
}

func TestNormalizeEmpty(t *testing.T) {
	_, _, _, err := Normalize("cjenik.csv", nil)
	var eerr *EncodingError
	require.ErrorAs(t, err, &eerr)
}

func TestFixCroatian(t *testing.T) {
	assert.Equal(t, "čć", FixCroatian("èÆ"))
	assert.Equal(t, "Čaš", FixCroatian("Ùa¹"))
	assert.Equal(t, "DINGAč", FixCroatian("DINGAè"))
}
