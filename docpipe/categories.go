package docpipe

import "regexp"

// Category is a legal document chunk class.
type Category string

const (
	CategoryAnklageschrift  Category = "anklageschrift"
	CategoryUrteil          Category = "urteil"
	CategoryBeschluss       Category = "beschluss"
	CategoryKlageschrift    Category = "klageschrift"
	CategoryKlageerwiderung Category = "klageerwiderung"
	CategoryVertrag         Category = "vertrag"
	CategoryKuendigung      Category = "kuendigung"
	CategoryMahnung         Category = "mahnung"
	CategoryVollmacht       Category = "vollmacht"
	CategoryGutachten       Category = "gutachten"
	CategoryZeugenaussage   Category = "zeugenaussage"
	CategoryVernehmung      Category = "vernehmung"
	CategoryRechnung        Category = "rechnung"
	CategoryKorrespondenz   Category = "korrespondenz"
	CategoryAntrag          Category = "antrag"
	CategoryVerfuegung      Category = "verfuegung"
	CategoryProtokoll       Category = "protokoll"
	CategoryBescheid        Category = "bescheid"
	CategoryVollstreckung   Category = "vollstreckung"
	CategorySachverhalt     Category = "sachverhalt"
	CategorySonstiges       Category = "sonstiges"
)

type categoryRule struct {
	category Category
	pattern  *regexp.Regexp
}

// categoryRules is an ordered table evaluated top to bottom; the first match
// wins. Specific filing types precede generic ones (anklageschrift before
// sachverhalt), and that precedence feeds quality scoring, so inserting new
// rules mid-table changes behaviour.
var categoryRules = []categoryRule{
	{CategoryAnklageschrift, regexp.MustCompile(`(?i)anklageschrift|erhebe.{0,30}anklage|angeschuldigte`)},
	{CategoryUrteil, regexp.MustCompile(`(?i)\burteil\b|im namen des volkes|wird verurteilt`)},
	{CategoryBeschluss, regexp.MustCompile(`(?i)\bbeschluss\b|beschlossen:`)},
	{CategoryKlageschrift, regexp.MustCompile(`(?i)klageschrift|erheben.{0,30}klage|\bklageantrag\b`)},
	{CategoryKlageerwiderung, regexp.MustCompile(`(?i)klageerwiderung|erwiderung auf die klage`)},
	{CategoryKuendigung, regexp.MustCompile(`(?i)kündigung|kündigen.{0,40}(vertrag|arbeitsverhältnis|mietverhältnis)`)},
	{CategoryVertrag, regexp.MustCompile(`(?i)\bvertrag\b|vereinbaren.{0,30}parteien|vertragsparteien`)},
	{CategoryMahnung, regexp.MustCompile(`(?i)\bmahnung\b|letztmalig.{0,30}auffordern|zahlungserinnerung`)},
	{CategoryVollmacht, regexp.MustCompile(`(?i)vollmacht|bevollmächtigt`)},
	{CategoryGutachten, regexp.MustCompile(`(?i)gutachten|sachverständige[rn]?\b`)},
	{CategoryZeugenaussage, regexp.MustCompile(`(?i)zeugenaussage|zeuge.{0,30}(sagt|erklärt|bekundet)`)},
	{CategoryVernehmung, regexp.MustCompile(`(?i)vernehmung|vernommen`)},
	{CategoryRechnung, regexp.MustCompile(`(?i)\brechnung\b|rechnungsnummer|\bnetto\b.{0,60}\bbrutto\b`)},
	{CategoryAntrag, regexp.MustCompile(`(?i)\bantrag\b|beantragen?\b`)},
	{CategoryVerfuegung, regexp.MustCompile(`(?i)verfügung|verfügt:`)},
	{CategoryProtokoll, regexp.MustCompile(`(?i)protokoll|niederschrift`)},
	{CategoryBescheid, regexp.MustCompile(`(?i)\bbescheid\b|widerspruchsbescheid`)},
	{CategoryVollstreckung, regexp.MustCompile(`(?i)vollstreckung|zwangsvollstreckung|pfändung`)},
	{CategoryKorrespondenz, regexp.MustCompile(`(?i)sehr geehrte|mit freundlichen grüßen|schreiben vom`)},
	{CategorySachverhalt, regexp.MustCompile(`(?i)sachverhalt|tatbestand|zum hergang`)},
}

// Categorize assigns a chunk category by first-match-wins table lookup.
func Categorize(text string) Category {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(text) {
			return rule.category
		}
	}
	return CategorySonstiges
}
