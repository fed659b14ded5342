package lxi

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestIdentification() *Identification {
	id := NewIdentification("Cyberdyne systems", "T800 Model 101", "A9012.C", "V2.4")
	id.AddNetworkInterface("t800.local", "192.0.2.10",
		SocketAddress("t800.local", 5025),
		HiSLIPAddress("t800.local", "hislip0"),
		InstrAddress("t800.local", "inst0"),
	)
	return id
}

func TestIdentificationXML(t *testing.T) {
	require := require.New(t)

	body, err := newTestIdentification().XML()
	require.NoError(err)

	text := string(body)
	require.True(strings.HasPrefix(text, xml.Header))
	require.Contains(text, `<LXIDevice xmlns="`+SchemaNamespace+`"`)
	require.Contains(text, "<Manufacturer>Cyberdyne systems</Manufacturer>")
	require.Contains(text, "<SerialNumber>A9012.C</SerialNumber>")
	require.Contains(text, "TCPIP::t800.local::5025::SOCKET")
	require.Contains(text, "TCPIP::t800.local::hislip0::INSTR")
	require.Contains(text, "<LXIVersion>1.5</LXIVersion>")

	// The document must stay well-formed XML.
	var probe struct {
		XMLName      xml.Name `xml:"LXIDevice"`
		Manufacturer string   `xml:"Manufacturer"`
		Interfaces   []struct {
			Addresses []string `xml:"InstrumentAddressString"`
		} `xml:"Interface"`
	}
	require.NoError(xml.Unmarshal(body, &probe))
	require.Equal("Cyberdyne systems", probe.Manufacturer)
	require.Len(probe.Interfaces, 1)
	require.Len(probe.Interfaces[0].Addresses, 3)
}

func TestIdentificationHandler(t *testing.T) {
	require := require.New(t)

	mux := http.NewServeMux()
	Mount(mux, newTestIdentification())

	req := httptest.NewRequest(http.MethodGet, IdentificationPath, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(http.StatusOK, rec.Code)
	require.Equal("text/xml; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(rec.Body.String(), "<Model>T800 Model 101</Model>")

	req = httptest.NewRequest(http.MethodPost, IdentificationPath, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(http.StatusMethodNotAllowed, rec.Code)
}
