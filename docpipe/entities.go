package docpipe

import (
	"regexp"
	"strings"
)

// compilePattern compiles the Unicode-aware pattern and falls back to a
// Latin-1 equivalent if the expression is rejected. Go's regexp accepts
// \p{L} classes, but the table format keeps both spellings so patterns stay
// portable across the deployments that share this rule set.
func compilePattern(unicodePat, asciiPat string) *regexp.Regexp {
	if re, err := regexp.Compile(unicodePat); err == nil {
		return re
	}
	return regexp.MustCompile(asciiPat)
}

const nameRune = `[A-ZÄÖÜ][\p{L}\-]+`
const nameRuneASCII = `[A-Z][A-Za-z\-]+`

type entityRule struct {
	typ EntityType
	re  *regexp.Regexp
	// normalize optionally post-processes the raw match.
	normalize func(string) string
}

var entityRules = []entityRule{
	{
		typ: EntityIBAN,
		re: compilePattern(
			`\b[A-Z]{2}\d{2}[ ]?(?:\d{4}[ ]?){4,7}\d{0,2}\b`,
			`\b[A-Z]{2}\d{2}[ ]?(?:\d{4}[ ]?){4,7}\d{0,2}\b`,
		),
		normalize: func(s string) string { return strings.ReplaceAll(s, " ", "") },
	},
	{
		typ: EntityLegalRef,
		re: compilePattern(
			`§§?\s*\d+[a-z]?(?:\s+Abs\.?\s*\d+)?(?:\s+Satz\s*\d+)?(?:\s+Nr\.?\s*\d+)?\s+(?:BGB|StGB|ZPO|StPO|HGB|GG|VwGO|VwVfG|SGB(?:\s+[IVX]+)?|AO|EStG|UStG|KStG|GewO|ArbGG|KSchG|BetrVG|TzBfG|BUrlG|MiLoG|AGG|BDSG|DSGVO|InsO|UrhG|MarkenG|PatG|GmbHG|AktG|GenG|UmwG|WEG|ErbbauRG|BauGB|BImSchG|KrWG|WHG|StVG|StVO|FeV|OWiG|JGG|AsylG|AufenthG|StAG|FamFG|VersAusglG|GKG|RVG|ZVG)`,
			`§§?\s*\d+[a-z]?(?:\s+Abs\.?\s*\d+)?(?:\s+Satz\s*\d+)?(?:\s+Nr\.?\s*\d+)?\s+[A-Z][A-Za-z]{1,8}`,
		),
	},
	{
		typ: EntityCaseNumber,
		re: compilePattern(
			`\b\d{1,3}\s?[A-Z][a-zA-Z]{0,4}\s?\d{1,5}/\d{2}\b|\bAz\.?:?\s*[\dA-Za-z ./-]{4,20}`,
			`\b\d{1,3}\s?[A-Z][a-zA-Z]{0,4}\s?\d{1,5}/\d{2}\b|\bAz\.?:?\s*[\dA-Za-z ./-]{4,20}`,
		),
	},
	{
		typ: EntityDate,
		re: compilePattern(
			`\b\d{1,2}\.\d{1,2}\.(?:\d{4}|\d{2})\b`,
			`\b\d{1,2}\.\d{1,2}\.(?:\d{4}|\d{2})\b`,
		),
	},
	{
		typ: EntityAmount,
		re: compilePattern(
			`(?:€|EUR|USD|CHF|\$)\s?\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?|\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?\s?(?:€|EUR|USD|CHF)`,
			`(?:EUR|USD|CHF|\$)\s?\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?|\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?\s?(?:EUR|USD|CHF)`,
		),
	},
	{
		typ: EntityOrganization,
		re: compilePattern(
			nameRune+`(?:[ \-]`+nameRune+`){0,3}\s+(?:GmbH\s*&\s*Co\.\s*KG|GmbH|AG|KG|OHG|GbR|e\.\s?V\.|SE|UG|mbH|eG)\b`,
			nameRuneASCII+`(?:[ \-]`+nameRuneASCII+`){0,3}\s+(?:GmbH\s*&\s*Co\.\s*KG|GmbH|AG|KG|OHG|GbR|e\.\s?V\.|SE|UG|mbH|eG)\b`,
		),
	},
	{
		typ: EntityAddress,
		re: compilePattern(
			`\b\p{L}+(?:straße|strasse|str\.|weg|platz|gasse|allee|ring|damm|ufer)\s+\d+[a-z]?(?:,?\s+\d{5}\s+\p{L}+)?`,
			`\b[A-Za-z]+(?:strasse|str\.|weg|platz|gasse|allee|ring|damm|ufer)\s+\d+[a-z]?(?:,?\s+\d{5}\s+[A-Za-z]+)?`,
		),
	},
	{
		typ: EntityPerson,
		re: compilePattern(
			`\b(?:Herrn?|Frau|Dr\.|Prof\.|RA|RAin|Rechtsanwalt|Rechtsanwältin|Richter(?:in)?|Staatsanwalt|Staatsanwältin)\s+(?:Dr\.\s+)?`+nameRune+`(?:\s+`+nameRune+`){0,2}`,
			`\b(?:Herrn?|Frau|Dr\.|Prof\.|RA|RAin|Rechtsanwalt|Richter)\s+(?:Dr\.\s+)?`+nameRuneASCII+`(?:\s+`+nameRuneASCII+`){0,2}`,
		),
	},
}

// ExtractEntities runs the ordered NER table over a text span. Each class is
// deduplicated as a set; matching is case-sensitive where capitalisation is
// part of the pattern (names), but deduplication folds case.
func ExtractEntities(text string) []Entity {
	var out []Entity
	seen := map[string]struct{}{}
	for _, rule := range entityRules {
		for _, m := range rule.re.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			if rule.normalize != nil {
				m = rule.normalize(m)
			}
			if m == "" {
				continue
			}
			key := string(rule.typ) + "\x00" + strings.ToLower(m)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Entity{Type: rule.typ, Value: m})
		}
	}
	return out
}

// MergeEntities unions entity slices, deduplicating across chunks.
func MergeEntities(slices ...[]Entity) []Entity {
	var out []Entity
	seen := map[string]struct{}{}
	for _, s := range slices {
		for _, e := range s {
			key := string(e.Type) + "\x00" + strings.ToLower(e.Value)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}
