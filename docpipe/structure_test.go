package docpipe

import (
	"strings"
	"testing"
)

func TestAnalyzeStructureHeadings(t *testing.T) {
	text := strings.Join([]string{
		"# Vertragsentwurf",
		"",
		"I. Präambel",
		"",
		"Die Parteien vereinbaren das Folgende im Einzelnen und im Detail.",
		"",
		"ZAHLUNGSBEDINGUNGEN",
		"Die Zahlung erfolgt innerhalb von 14 Tagen.",
	}, "\n")

	s := AnalyzeStructure(text)
	want := []string{"Vertragsentwurf", "I. Präambel", "ZAHLUNGSBEDINGUNGEN"}
	if len(s.Headings) != len(want) {
		t.Fatalf("headings = %v, want %v", s.Headings, want)
	}
	for i, h := range want {
		if s.Headings[i] != h {
			t.Errorf("heading[%d] = %q, want %q", i, s.Headings[i], h)
		}
	}
}

func TestAnalyzeStructureTables(t *testing.T) {
	pipeTable := strings.Join([]string{
		"| Position | Betrag |",
		"|----------|--------|",
		"| Miete    | 800 €  |",
		"| Strom    | 90 €   |",
	}, "\n")
	s := AnalyzeStructure(pipeTable)
	if !s.HasTables || s.TableCount != 1 {
		t.Errorf("pipe table not detected: %+v", s)
	}

	tabTable := strings.Join([]string{
		"Position\tBetrag\tDatum",
		"Miete\t800\t01.01.",
		"Strom\t90\t02.01.",
		"Gas\t50\t03.01.",
	}, "\n")
	s = AnalyzeStructure(tabTable)
	if !s.HasTables {
		t.Errorf("tab table not detected: %+v", s)
	}

	s = AnalyzeStructure("kein Tabelleninhalt\nnur Fließtext hier")
	if s.HasTables {
		t.Errorf("false positive table: %+v", s)
	}
}

func TestAnalyzeStructureColumns(t *testing.T) {
	line := "linke Spalte Text hier     rechte Spalte Text dort drüben"
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	s := AnalyzeStructure(b.String())
	if !s.MultiColumn {
		t.Error("multi-column layout not detected")
	}

	s = AnalyzeStructure(strings.Repeat("normaler Fließtext ohne grosse Lücken dazwischen\n", 40))
	if s.MultiColumn {
		t.Error("false positive multi-column detection")
	}
}
