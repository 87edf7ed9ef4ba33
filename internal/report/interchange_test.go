package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprucekit/spruce/internal/classify"
	"github.com/sprucekit/spruce/internal/inventory"
)

func testHeader() Header {
	return Header{
		Date:          time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Server:        "https://jamf.example.com",
		APIUser:       "api",
		LocalUser:     "admin",
		ToolVersion:   "2.0.3",
		ClientVersion: "1.1.0",
	}
}

func testReport() *Report {
	mk := func(t inventory.ObjectType, id int, name string) classify.Record {
		return classify.Record{
			Object:  inventory.ManagedObject{Type: t, ID: id, Name: name},
			Reasons: []classify.Reason{classify.ReasonUnused},
			Score:   40,
			Rank:    classify.RankHigh,
		}
	}
	return &Report{
		Header: testHeader(),
		Sections: []Section{
			{Type: inventory.TypePackage, Records: []classify.Record{
				mk(inventory.TypePackage, 891, "Atom-1.0.5.pkg"),
				mk(inventory.TypePackage, 12, "Old & Busted.pkg"), // exercises escaping
			}},
			{Type: inventory.TypeScript, Records: []classify.Record{
				mk(inventory.TypeScript, 123, "oldScript.sh"),
			}},
			{Type: inventory.TypeComputer, Records: []classify.Record{
				mk(inventory.TypeComputer, 7, "lab-mac-07"),
			}},
		},
	}
}

func TestInterchangeRoundTrip(t *testing.T) {
	rpt := testReport()

	var buf bytes.Buffer
	require.NoError(t, WriteInterchange(&buf, rpt))

	request, err := ParseRemovals(&buf)
	require.NoError(t, err)

	// The parsed (type, id) set must equal the removal-eligible
	// records' set. Computers are report-only and never serialized
	// under Removals.
	type identity struct {
		t  inventory.ObjectType
		id int
	}
	want := map[identity]bool{
		{inventory.TypePackage, 891}: true,
		{inventory.TypePackage, 12}:  true,
		{inventory.TypeScript, 123}:  true,
	}
	got := map[identity]bool{}
	for _, item := range request.Items {
		got[identity{item.Type, item.ID}] = true
	}
	assert.Equal(t, want, got)
}

func TestWriteInterchangeHeaderFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInterchange(&buf, testReport()))
	doc := buf.String()

	for _, want := range []string{
		"<SpruceReport>",
		"<Server>https://jamf.example.com</Server>",
		"<APIUser>api</APIUser>",
		"<LocalUser>admin</LocalUser>",
		"<SpruceVersion>2.0.3</SpruceVersion>",
		"<ClientLibraryVersion>1.1.0</ClientLibraryVersion>",
		"<Removals>",
	} {
		assert.Contains(t, doc, want)
	}
	// Exactly one Removals element.
	assert.Equal(t, 1, strings.Count(doc, "<Removals>"))
}

func TestParseRemovalsValidDocument(t *testing.T) {
	doc := `<?xml version="1.0"?>
<SpruceReport>
  <ReportDate>2026-08-30</ReportDate>
  <Removals>
    <Package id="891">Atom-1.0.5.pkg</Package>
    <Script id="123">oldScript.sh</Script>
    <MobileApplication id="4"></MobileApplication>
  </Removals>
</SpruceReport>`
	request, err := ParseRemovals(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, request.Items, 3)
	assert.Equal(t, inventory.TypePackage, request.Items[0].Type)
	assert.Equal(t, 891, request.Items[0].ID)
	assert.Equal(t, "Atom-1.0.5.pkg", request.Items[0].Name)
	assert.Equal(t, inventory.TypeMobileApplication, request.Items[2].Type)
}

func TestParseRemovalsRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"missing id attribute",
			`<SpruceReport><Removals><Package id="1">a</Package><Script>no id</Script></Removals></SpruceReport>`,
		},
		{
			"non-numeric id",
			`<SpruceReport><Removals><Package id="abc">a</Package></Removals></SpruceReport>`,
		},
		{
			"negative id",
			`<SpruceReport><Removals><Package id="-3">a</Package></Removals></SpruceReport>`,
		},
		{
			"unrecognized tag",
			`<SpruceReport><Removals><Widget id="1">a</Widget></Removals></SpruceReport>`,
		},
		{
			"wrong tag case",
			`<SpruceReport><Removals><package id="1">a</package></Removals></SpruceReport>`,
		},
		{
			"plural tag",
			`<SpruceReport><Removals><Packages id="1">a</Packages></Removals></SpruceReport>`,
		},
		{
			"no removals element",
			`<SpruceReport><ReportDate>now</ReportDate></SpruceReport>`,
		},
		{
			"two removals elements",
			`<SpruceReport><Removals/><Removals/></SpruceReport>`,
		},
		{
			"wrong root",
			`<Report><Removals><Package id="1">a</Package></Removals></Report>`,
		},
		{
			"truncated document",
			`<SpruceReport><Removals><Package id="1">a</Package>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRemovals(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedDocument), "want ErrMalformedDocument, got %v", err)
		})
	}
}

// A malformed child must abort the whole parse even when earlier
// entries were valid: fail closed, never a partial removal set.
func TestParseRemovalsFailClosed(t *testing.T) {
	doc := `<SpruceReport><Removals>
  <Package id="1">keep-me-out.pkg</Package>
  <Package>no id here</Package>
</Removals></SpruceReport>`
	request, err := ParseRemovals(strings.NewReader(doc))
	require.Error(t, err)
	assert.Empty(t, request.Items)
}
