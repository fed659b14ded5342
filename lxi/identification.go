// Package lxi implements the LXI identification surface of the server: the
// XML identification document and its HTTP endpoint at /lxi/identification.
package lxi

import (
	"encoding/xml"
	"fmt"
	"net/http"
)

// Schema constants of the LXI device identification document.
const (
	SchemaNamespace = "http://www.lxistandard.org/InstrumentIdentification/1.0"
	XSINamespace    = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaLocation  = "http://www.lxistandard.org/InstrumentIdentification/1.0 http://www.lxistandard.org/InstrumentIdentification/1.0/LXIIdentification.xsd"

	// IdentificationPath is the well-known URL path of the document.
	IdentificationPath = "/lxi/identification"
)

// Identification is the LXI device identification document.
type Identification struct {
	XMLName        xml.Name `xml:"LXIDevice"`
	Xmlns          string   `xml:"xmlns,attr"`
	XmlnsXSI       string   `xml:"xmlns:xsi,attr"`
	SchemaLocation string   `xml:"xsi:schemaLocation,attr"`

	Manufacturer            string `xml:"Manufacturer"`
	Model                   string `xml:"Model"`
	SerialNumber            string `xml:"SerialNumber"`
	FirmwareRevision        string `xml:"FirmwareRevision"`
	ManufacturerDescription string `xml:"ManufacturerDescription"`
	HomepageURL             string `xml:"HomepageURL"`
	DriverURL               string `xml:"DriverURL"`
	UserDescription         string `xml:"UserDescription"`
	IdentificationURL       string `xml:"IdentificationURL"`

	Interfaces []Interface `xml:"Interface"`

	Domain     uint8  `xml:"Domain,omitempty"`
	LXIVersion string `xml:"LXIVersion"`
}

// Interface describes one instrument control interface in the identification
// document.
type Interface struct {
	XSIType       string `xml:"xsi:type,attr,omitempty"`
	InterfaceType string `xml:"InterfaceType,attr"`
	InterfaceName string `xml:"InterfaceName,attr,omitempty"`

	InstrumentAddressStrings []string `xml:"InstrumentAddressString"`

	Hostname  string `xml:"Hostname,omitempty"`
	IPAddress string `xml:"IPAddress,omitempty"`
}

// NewIdentification creates an identification document with the schema
// attributes filled in.
func NewIdentification(manufacturer, model, serialNumber, firmwareRevision string) *Identification {
	return &Identification{
		Xmlns:            SchemaNamespace,
		XmlnsXSI:         XSINamespace,
		SchemaLocation:   SchemaLocation,
		Manufacturer:     manufacturer,
		Model:            model,
		SerialNumber:     serialNumber,
		FirmwareRevision: firmwareRevision,
		LXIVersion:       "1.5",
	}
}

// AddNetworkInterface appends a LAN interface entry with the given VISA
// address strings.
func (id *Identification) AddNetworkInterface(hostname, ipAddress string, addresses ...string) {
	id.Interfaces = append(id.Interfaces, Interface{
		XSIType:                  "NetworkInformation",
		InterfaceType:            "LXI",
		InterfaceName:            fmt.Sprintf("eth%d", len(id.Interfaces)),
		InstrumentAddressStrings: addresses,
		Hostname:                 hostname,
		IPAddress:                ipAddress,
	})
}

// XML renders the document with an XML declaration.
func (id *Identification) XML() ([]byte, error) {
	body, err := xml.MarshalIndent(id, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal identification document: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// SocketAddress returns the VISA address string of a raw socket interface.
func SocketAddress(host string, port int) string {
	return fmt.Sprintf("TCPIP::%s::%d::SOCKET", host, port)
}

// HiSLIPAddress returns the VISA address string of a HiSLIP sub-address.
func HiSLIPAddress(host, subAddress string) string {
	return fmt.Sprintf("TCPIP::%s::%s::INSTR", host, subAddress)
}

// InstrAddress returns the VISA address string of a VXI-11 instrument name.
func InstrAddress(host, name string) string {
	return fmt.Sprintf("TCPIP::%s::%s::INSTR", host, name)
}

// Handler serves the identification document.
func Handler(id *Identification) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := id.XML()
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		_, _ = w.Write(body)
	}
}

// Mount registers the identification handler at its well-known path.
func Mount(mux *http.ServeMux, id *Identification) {
	mux.Handle(IdentificationPath, Handler(id))
}
