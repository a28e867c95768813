// Package extractor turns raw incident report text into a FieldMap by
// matching the labelled sections of the report template.
package extractor

import (
	"regexp"
	"strings"

	"github.com/crimson-sun/blotter/internal/model"
)

// Labels maps each field to the label that introduces it in a report.
var Labels = map[model.Field]string{
	model.FieldReportNumber:        "Report Number",
	model.FieldDateTime:            "Date & Time",
	model.FieldIncidentLocation:    "Incident Location",
	model.FieldCoordinates:         "Coordinates",
	model.FieldDetailedDescription: "Detailed Description",
	model.FieldPoliceDistrict:      "Police District",
	model.FieldResolution:          "Resolution",
}

var (
	lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n")

	// Single-line fields: label, then the rest of the same line.
	linePatterns = map[model.Field]*regexp.Regexp{
		model.FieldReportNumber:     lineLabel(Labels[model.FieldReportNumber]),
		model.FieldDateTime:         lineLabel(Labels[model.FieldDateTime]),
		model.FieldIncidentLocation: lineLabel(Labels[model.FieldIncidentLocation]),
		model.FieldPoliceDistrict:   lineLabel(Labels[model.FieldPoliceDistrict]),
		model.FieldResolution:       lineLabel(Labels[model.FieldResolution]),
	}

	coordinatesPattern = regexp.MustCompile(`Coordinates:\s*\(([^)]+)\)`)

	// The description runs from its label to the next line that opens with a
	// known section label. Label words inside the prose do not end it.
	descriptionPattern = regexp.MustCompile(`(?s)Detailed Description:\s*(.*?)\s*\n[ \t]*(?:` + otherLabels(model.FieldDetailedDescription) + `):`)

	newlineRun = regexp.MustCompile(`[ \t]*\n\s*`)
)

func lineLabel(label string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(label) + `:[ \t]*([^\n]*)`)
}

// otherLabels returns an alternation of every label except the one for skip.
func otherLabels(skip model.Field) string {
	var alts []string
	for _, f := range model.Fields {
		if f != skip {
			alts = append(alts, regexp.QuoteMeta(Labels[f]))
		}
	}
	return strings.Join(alts, "|")
}

// JoinPages normalises line endings and concatenates pages in reading
// order, each page followed by a single newline.
func JoinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(lineBreaks.Replace(p))
		b.WriteByte('\n')
	}
	return b.String()
}

// Extract pulls every known field out of text. It never fails: fields whose
// pattern does not match, or whose value is blank, are left unset.
func Extract(text string) model.FieldMap {
	text = lineBreaks.Replace(text)
	fm := make(model.FieldMap, len(model.Fields))

	for field, re := range linePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			set(fm, field, m[1])
		}
	}

	if m := coordinatesPattern.FindStringSubmatch(text); m != nil {
		set(fm, model.FieldCoordinates, m[1])
	}

	if m := descriptionPattern.FindStringSubmatch(text); m != nil {
		set(fm, model.FieldDetailedDescription, newlineRun.ReplaceAllString(m[1], " "))
	}

	return fm
}

// Missing returns the unset fields of fm in template order.
func Missing(fm model.FieldMap) []model.Field {
	var missing []model.Field
	for _, f := range model.Fields {
		if _, ok := fm[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func set(fm model.FieldMap, f model.Field, v string) {
	if v = strings.TrimSpace(v); v != "" {
		fm[f] = v
	}
}
