package soap

import (
	"bytes"
	"encoding/xml"
)

const (
	envNS = "http://schemas.xmlsoap.org/soap/envelope/"
	xsiNS = "http://www.w3.org/2001/XMLSchema-instance"
)

// Param is one named operation argument. Order is preserved on the wire.
type Param struct {
	Name  string
	Value any
}

func P(name string, value any) Param { return Param{Name: name, Value: value} }

func encodeEnvelope(namespace, op string, params []Param) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)

	envelope := xml.StartElement{
		Name: xml.Name{Local: "soap:Envelope"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:soap"}, Value: envNS},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: xsiNS},
		},
	}
	body := xml.StartElement{Name: xml.Name{Local: "soap:Body"}}
	call := xml.StartElement{
		Name: xml.Name{Local: op},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: namespace}},
	}

	for _, t := range []xml.StartElement{envelope, body, call} {
		if err := enc.EncodeToken(t); err != nil {
			return nil, err
		}
	}
	for _, p := range params {
		if p.Value == nil {
			continue
		}
		if err := enc.EncodeElement(p.Value, xml.StartElement{Name: xml.Name{Local: p.Name}}); err != nil {
			return nil, err
		}
	}
	for _, t := range []xml.StartElement{call, body, envelope} {
		if err := enc.EncodeToken(t.End()); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type envelopeDoc struct {
	Body struct {
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
		Content []*Node `xml:",any"`
	} `xml:"Body"`
}
