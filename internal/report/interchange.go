package report

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sprucekit/spruce/internal/inventory"
	"github.com/sprucekit/spruce/internal/removal"
)

// ErrMalformedDocument wraps every interchange parse failure. Parsing
// is fail-closed: any schema violation aborts before a single delete
// is issued.
var ErrMalformedDocument = errors.New("malformed interchange document")

const rootTag = "SpruceReport"

// xmlRecord is a CruftRecord in the interchange document: id and rank
// as attributes, reasons as an attribute list, the display name as
// text.
type xmlRecord struct {
	ID      int    `xml:"id,attr"`
	Rank    int    `xml:"rank,attr,omitempty"`
	Reasons string `xml:"reasons,attr,omitempty"`
	Name    string `xml:",chardata"`
}

// WriteInterchange renders the report to the SpruceReport document.
// Every cruft record also appears under Removals so the file can be
// edited down and fed back through --remove.
func WriteInterchange(w io.Writer, rpt *Report) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: rootTag}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}

	header := []struct{ tag, value string }{
		{"ReportDate", rpt.Header.Date.Format("2006-01-02T15:04:05Z07:00")},
		{"Server", rpt.Header.Server},
		{"APIUser", rpt.Header.APIUser},
		{"LocalUser", rpt.Header.LocalUser},
		{"SpruceVersion", rpt.Header.ToolVersion},
		{"ClientLibraryVersion", rpt.Header.ClientVersion},
	}
	for _, field := range header {
		if err := enc.EncodeElement(field.value, xml.StartElement{Name: xml.Name{Local: field.tag}}); err != nil {
			return err
		}
	}

	for _, section := range rpt.Sections {
		if len(section.Records) == 0 {
			continue
		}
		sectionStart := xml.StartElement{Name: xml.Name{Local: section.Type.Plural()}}
		if err := enc.EncodeToken(sectionStart); err != nil {
			return err
		}
		for _, record := range section.Records {
			rec := xmlRecord{
				ID:      record.Object.ID,
				Rank:    record.Rank,
				Reasons: joinReasons(record.Reasons),
				Name:    record.Object.Name,
			}
			if err := enc.EncodeElement(rec, xml.StartElement{Name: xml.Name{Local: section.Type.String()}}); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(sectionStart.End()); err != nil {
			return err
		}
	}

	removalsStart := xml.StartElement{Name: xml.Name{Local: "Removals"}}
	if err := enc.EncodeToken(removalsStart); err != nil {
		return err
	}
	for _, candidate := range rpt.RemovalCandidates() {
		rec := xmlRecord{ID: candidate.ID, Name: candidate.Name}
		if err := enc.EncodeElement(rec, xml.StartElement{Name: xml.Name{Local: candidate.Type.String()}}); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(removalsStart.End()); err != nil {
		return err
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ParseRemovals reads an interchange document and extracts its removal
// request. Validation is strict: the root must be SpruceReport, there
// must be exactly one Removals element directly under the root, every
// Removals child must be one of the ten recognized type tags
// (case-sensitive), and every child must carry a numeric id attribute.
// Any violation returns ErrMalformedDocument and no request.
func ParseRemovals(r io.Reader) (removal.Request, error) {
	decoder := xml.NewDecoder(r)

	rootSeen := false
	removalsCount := 0
	var request removal.Request
	depth := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return removal.Request{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		switch element := token.(type) {
		case xml.StartElement:
			depth++
			switch {
			case depth == 1:
				if element.Name.Local != rootTag {
					return removal.Request{}, fmt.Errorf("%w: root element is %q, want %q",
						ErrMalformedDocument, element.Name.Local, rootTag)
				}
				rootSeen = true
			case depth == 2 && element.Name.Local == "Removals":
				removalsCount++
				if removalsCount > 1 {
					return removal.Request{}, fmt.Errorf("%w: multiple Removals elements", ErrMalformedDocument)
				}
				items, err := parseRemovalItems(decoder, &element)
				if err != nil {
					return removal.Request{}, err
				}
				request.Items = items
				depth-- // parseRemovalItems consumed the end element
			}
		case xml.EndElement:
			depth--
		}
	}

	if !rootSeen {
		return removal.Request{}, fmt.Errorf("%w: no %s root element", ErrMalformedDocument, rootTag)
	}
	if removalsCount == 0 {
		return removal.Request{}, fmt.Errorf("%w: no Removals element", ErrMalformedDocument)
	}
	return request, nil
}

// parseRemovalItems consumes the children of a Removals element,
// validating each one.
func parseRemovalItems(decoder *xml.Decoder, removals *xml.StartElement) ([]removal.Item, error) {
	var items []removal.Item
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		switch element := token.(type) {
		case xml.StartElement:
			objectType, ok := inventory.ParseObjectType(element.Name.Local)
			if !ok {
				return nil, fmt.Errorf("%w: unrecognized removal tag %q", ErrMalformedDocument, element.Name.Local)
			}
			id, err := requiredIDAttr(element)
			if err != nil {
				return nil, err
			}
			var name struct {
				Text string `xml:",chardata"`
			}
			if err := decoder.DecodeElement(&name, &element); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
			}
			items = append(items, removal.Item{
				Type: objectType,
				ID:   id,
				Name: strings.TrimSpace(name.Text),
			})
		case xml.EndElement:
			if element.Name == removals.Name {
				return items, nil
			}
		}
	}
}

// requiredIDAttr extracts the numeric id attribute; a missing or
// non-numeric id is a schema violation.
func requiredIDAttr(element xml.StartElement) (int, error) {
	for _, attr := range element.Attr {
		if attr.Name.Local != "id" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(attr.Value))
		if err != nil || id < 0 {
			return 0, fmt.Errorf("%w: element %q has non-numeric id %q",
				ErrMalformedDocument, element.Name.Local, attr.Value)
		}
		return id, nil
	}
	return 0, fmt.Errorf("%w: element %q is missing the id attribute", ErrMalformedDocument, element.Name.Local)
}
