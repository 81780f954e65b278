package docpipe

import "testing"

func findEntity(entities []Entity, typ EntityType, value string) bool {
	for _, e := range entities {
		if e.Type == typ && e.Value == value {
			return true
		}
	}
	return false
}

func TestExtractEntities(t *testing.T) {
	text := `Herr Dr. Max Mustermann, vertreten durch RA Julia Schmidt von der
Kanzlei Schmidt und Partner GmbH, fordert gemäß § 280 Abs. 1 BGB
Schadensersatz in Höhe von 1.250,00 € aus dem Vorfall vom 15.03.2024.
Aktenzeichen: 4 O 123/24. Zahlung auf DE89 3704 0044 0532 0130 00,
Kanzleisitz Musterstraße 12, 80331 München.`

	entities := ExtractEntities(text)

	tests := []struct {
		typ   EntityType
		value string
	}{
		{EntityLegalRef, "§ 280 Abs. 1 BGB"},
		{EntityDate, "15.03.2024"},
		{EntityAmount, "1.250,00 €"},
		{EntityCaseNumber, "4 O 123/24"},
		{EntityIBAN, "DE89370400440532013000"},
	}
	for _, tt := range tests {
		if !findEntity(entities, tt.typ, tt.value) {
			t.Errorf("missing %s entity %q in %+v", tt.typ, tt.value, entities)
		}
	}

	var havePerson, haveOrg, haveAddr bool
	for _, e := range entities {
		switch e.Type {
		case EntityPerson:
			havePerson = true
		case EntityOrganization:
			haveOrg = true
		case EntityAddress:
			haveAddr = true
		}
	}
	if !havePerson {
		t.Error("expected a person entity")
	}
	if !haveOrg {
		t.Error("expected an organization entity")
	}
	if !haveAddr {
		t.Error("expected an address entity")
	}
}

func TestExtractEntitiesDedup(t *testing.T) {
	entities := ExtractEntities("Frist: 01.01.2025, nochmals 01.01.2025 und 01.01.2025.")
	count := 0
	for _, e := range entities {
		if e.Type == EntityDate {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one deduplicated date, got %d", count)
	}
}

func TestMergeEntities(t *testing.T) {
	a := []Entity{{Type: EntityDate, Value: "01.01.2025"}}
	b := []Entity{{Type: EntityDate, Value: "01.01.2025"}, {Type: EntityAmount, Value: "5 €"}}
	merged := MergeEntities(a, b)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged entities, got %d: %+v", len(merged), merged)
	}
}

func TestCategorizeOrderSensitive(t *testing.T) {
	// Contains both anklageschrift and sachverhalt markers; the more specific
	// rule sits earlier in the table and must win.
	text := "Anklageschrift gegen den Beschuldigten. Der Sachverhalt ergibt sich aus den Akten."
	if got := Categorize(text); got != CategoryAnklageschrift {
		t.Fatalf("Categorize = %q, want anklageschrift", got)
	}
	if got := Categorize("Der Sachverhalt ergibt sich aus den Akten."); got != CategorySachverhalt {
		t.Fatalf("Categorize = %q, want sachverhalt", got)
	}
	if got := Categorize("völlig neutraler Inhalt"); got != CategorySonstiges {
		t.Fatalf("Categorize = %q, want sonstiges", got)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		{"Im Namen des Volkes ergeht folgendes Urteil", CategoryUrteil},
		{"Hiermit kündigen wir das Mietverhältnis fristgerecht", CategoryKuendigung},
		{"Rechnungsnummer 2024-001, zahlbar sofort", CategoryRechnung},
		{"Sehr geehrte Damen und Herren, mit freundlichen Grüßen", CategoryKorrespondenz},
		{"Die Zwangsvollstreckung wird angeordnet", CategoryVollstreckung},
	}
	for _, tt := range tests {
		if got := Categorize(tt.text); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want Language
	}{
		{"Der Kläger hat die Forderung mit Schreiben vom 1.1.2024 geltend gemacht und nicht erhalten", LangGerman},
		{"The plaintiff shall submit the claim with the required documents for this case", LangEnglish},
		{"kurz", LangUnknown},
		{"12345 67890 12345 67890 12345", LangUnknown},
	}
	for _, tt := range tests {
		if got := DetectLanguage(tt.text); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "Vertrag Vertrag Vertrag Kündigung Kündigung Mietvertrag und der die das"
	kws := ExtractKeywords(text)
	if len(kws) == 0 {
		t.Fatal("expected keywords")
	}
	if kws[0] != "vertrag" {
		t.Errorf("top keyword = %q, want vertrag", kws[0])
	}
	for _, kw := range kws {
		if kw == "und" || kw == "der" || kw == "die" || kw == "das" {
			t.Errorf("stop word %q leaked into keywords", kw)
		}
	}
	if len(kws) > maxKeywords {
		t.Errorf("keyword count %d exceeds cap", len(kws))
	}
}
