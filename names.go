package structgraph

import "github.com/viant/tagly/format/text"

// FormatName renders a Go identifier in the supplied case format
func FormatName(name string, caseFormat text.CaseFormat) string {
	if !caseFormat.IsDefined() {
		return name
	}
	if name == "ID" {
		switch caseFormat {
		case text.CaseFormatLower, text.CaseFormatLowerCamel, text.CaseFormatLowerUnderscore:
			return "id"
		}
	}
	src := text.DetectCaseFormat(name)
	if !src.IsDefined() {
		src = text.CaseFormatUpperCamel
	}
	return src.Format(name, caseFormat)
}

// FormattedName returns property name in caseFormat, explicitly named properties keep their name
func (p *Property) FormattedName(caseFormat text.CaseFormat) string {
	if p.Explicit {
		return p.Name
	}
	return FormatName(p.Name, caseFormat)
}

// Lookup returns property matched by name, exact match first, then case-insensitive,
// then by name rendered in caseFormat
func (d *TypeDefinition) Lookup(name string, caseFormat text.CaseFormat) *Property {
	if ret := d.Property(name); ret != nil {
		return ret
	}
	if !caseFormat.IsDefined() {
		return nil
	}
	for _, candidate := range d.Properties() {
		if candidate.FormattedName(caseFormat) == name {
			return candidate
		}
	}
	return nil
}
