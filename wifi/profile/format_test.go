package profile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/shazow/wifirecover/wifi"
)

func TestFormatIndentsAndDeclaresASCII(t *testing.T) {
	doc := `<WLANProfile xmlns="http://www.microsoft.com/networking/WLAN/profile/v1"><name>Home</name><SSIDConfig><SSID><name>Home</name></SSID></SSIDConfig></WLANProfile>`

	out, err := Format([]byte(doc), nil)
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="us-ascii"?>
<WLANProfile
  xmlns="http://www.microsoft.com/networking/WLAN/profile/v1">
  <name>Home</name>
  <SSIDConfig>
    <SSID>
      <name>Home</name>
    </SSID>
  </SSIDConfig>
</WLANProfile>`
	assert.Equal(t, want, string(out))
}

func TestFormatAttributesInline(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?><a x="1" y="2"><b/></a>`

	out, err := Format([]byte(doc), &FormatOptions{Indent: "\t"})
	require.NoError(t, err)

	want := "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<a x=\"1\" y=\"2\">\n\t<b />\n</a>"
	assert.Equal(t, want, string(out))
}

func TestFormatEscapesNonASCII(t *testing.T) {
	doc := `<a><name>Café &amp; Bar</name></a>`

	out, err := Format([]byte(doc), nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<name>Caf&#xE9; &amp; Bar</name>")
}

func TestFormatKeepsDeclaredEncoding(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><a><name>Caf\xe9</name></a>")

	out, err := Format(doc, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `encoding="ISO-8859-1"`)
	assert.Contains(t, string(out), "<name>Caf\xe9</name>")
}

func TestFormatUTF16WithBOM(t *testing.T) {
	src := `<?xml version="1.0" encoding="UTF-16"?><a><b>é</b></a>`
	doc, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder(), []byte(src))
	require.NoError(t, err)

	out, err := Format(doc, nil)
	require.NoError(t, err)

	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), out)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "<b>é</b>")
}

func TestFormatCreatedProfileStillParses(t *testing.T) {
	ap := wifi.AccessPoint{
		SSID:           "Webgate",
		BssType:        wifi.BssInfrastructure,
		Authentication: wifi.AuthWPA2Personal,
		Encryption:     wifi.EncryptionAES,
	}
	doc, err := Create(ap, "Welcome123")
	require.NoError(t, err)

	out, err := Format([]byte(doc), DefaultFormatOptions())
	require.NoError(t, err)

	p, err := Parse(string(out))
	require.NoError(t, err)
	assert.Equal(t, "Webgate", p.SSID)
	assert.Equal(t, "Welcome123", p.Key)
	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="us-ascii"?>`))
}

func TestFormatKeepsComments(t *testing.T) {
	out, err := Format([]byte(`<a><!-- note --><b>1</b></a>`), nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n  <!-- note -->\n  <b>1</b>")
}

func TestFormatFailures(t *testing.T) {
	for _, doc := range []string{"", "   ", "<a><b></a>", "<a>", "just text"} {
		_, err := Format([]byte(doc), nil)
		assert.ErrorIs(t, err, ErrMalformedDocument, "Format(%q)", doc)
	}
}
