// n2kgen reads a CANboat PGN manifest and emits a Go source file defining
// static n2k.PGNDescriptor values like those in pgns.Descriptors. It runs at
// build time only -- the generated file is checked in, and the canboat
// package it depends on never ships in a deployed binary.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/halyard-n2k/n2k/canboat"
)

func main() {
	manifestPath := flag.String("manifest", "", "path to CANboat pgns.json manifest")
	outPath := flag.String("out", "", "path to write the generated Go file to")
	pkgName := flag.String("package", "pgns", "package name for the generated file")
	flag.Parse()

	if *manifestPath == "" || *outPath == "" {
		log.Fatal("# n2kgen: -manifest and -out are required\n")
	}

	schema, err := canboat.LoadSchema(os.DirFS("."), *manifestPath)
	if err != nil {
		log.Fatalf("# n2kgen: load manifest: %v\n", err)
	}

	descriptors, skipped := buildDescriptors(schema.PGNs, schema.Enums, schema.BitEnums, schema.IndirectEnums)
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "# n2kgen: skipping PGN %v (%v): %v\n", s.pgn.PGN, s.pgn.ID, s.reason)
	}

	sort.Slice(descriptors, func(i, j int) bool {
		if descriptors[i].PGN != descriptors[j].PGN {
			return descriptors[i].PGN < descriptors[j].PGN
		}
		return descriptors[i].GoName < descriptors[j].GoName
	})

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("# n2kgen: create output: %v\n", err)
	}
	defer f.Close()

	if err := generatedFileTemplate.Execute(f, templateData{
		Package:     *pkgName,
		ManifestVer: schema.Version,
		Descriptors: descriptors,
	}); err != nil {
		log.Fatalf("# n2kgen: render template: %v\n", err)
	}
	fmt.Printf("# n2kgen: wrote %v descriptors to %v\n", len(descriptors), *outPath)
}

type skippedPGN struct {
	pgn    canboat.PGN
	reason string
}

type genField struct {
	ID                string
	Order             int8
	Kind              string
	BitLength         uint16
	BitOffset         uint16
	BitLengthVariable bool
	Signed            bool
	Resolution        float64
	Offset            float64
	Unit              string

	LookupEnum   string
	LookupValues []genEnumValue

	LookupBitEnum   string
	LookupBitValues []genBitEnumValue

	LookupIndirectEnum       string
	LookupIndirectValues     []genIndirectEnumValue
	LookupIndirectFieldOrder int8
}

type genEnumValue struct {
	Value uint32
	Name  string
}

type genBitEnumValue struct {
	Bit  uint32
	Name string
}

type genIndirectEnumValue struct {
	Value         uint32
	IndirectValue uint32
	Name          string
}

type genDescriptor struct {
	GoName      string
	PGN         uint32
	Name        string
	Description string
	Category    string
	MinLength   uint16
	Length      uint16
	Fields      []genField
}

// buildDescriptors converts every complete, non-matchable manifest PGN
// without repeating field sets into a descriptor literal. Matchable PGNs
// (several field-set variants sharing one PGN number, distinguished by a
// Match field), incomplete entries, PGNs with repeating field sets, and PGNs
// with a field that fails validation or has an unknown field type are
// skipped and left for a human to model by hand, the way the typed structs
// in pgns.go already do for PGNs whose layout is worth guaranteeing exactly.
func buildDescriptors(entries canboat.PGNs, enums canboat.LookupEnumerations, bitEnums canboat.LookupBitEnumerations, indirectEnums canboat.LookupIndirectEnumerations) ([]genDescriptor, []skippedPGN) {
	var out []genDescriptor
	var skipped []skippedPGN
	for _, p := range entries {
		if !p.Complete {
			skipped = append(skipped, skippedPGN{p, "incomplete manifest entry"})
			continue
		}
		if p.IsMatchable {
			skipped = append(skipped, skippedPGN{p, "matchable PGN needs a hand-written variant selector"})
			continue
		}
		if p.RepeatingFieldSet1Size != 0 || p.RepeatingFieldSet2Size != 0 {
			skipped = append(skipped, skippedPGN{p, "repeating field sets need a hand-reviewed MaxRepetitions bound"})
			continue
		}

		fields := make([]genField, 0, len(p.Fields))
		ok := true
		for _, f := range p.Fields {
			if err := f.Validate(); err != nil {
				skipped = append(skipped, skippedPGN{p, err.Error()})
				ok = false
				break
			}
			kind, err := fieldKind(f.FieldType)
			if err != nil {
				skipped = append(skipped, skippedPGN{p, err.Error()})
				ok = false
				break
			}

			gf := genField{
				ID:                f.ID,
				Order:             f.Order,
				Kind:              kind,
				BitLength:         f.BitLength,
				BitOffset:         f.BitOffset,
				BitLengthVariable: f.BitLengthVariable,
				Signed:            f.Signed,
				Resolution:        f.Resolution,
				Offset:            float64(f.Offset),
				Unit:              f.Unit,
			}

			switch f.FieldType {
			case canboat.FieldTypeLookup:
				enum, found := enums.Find(f.LookupEnumeration)
				if !found {
					skipped = append(skipped, skippedPGN{p, fmt.Sprintf("unknown LookupEnumeration %q", f.LookupEnumeration)})
					ok = false
				}
				gf.LookupEnum = f.LookupEnumeration
				for _, v := range enum.Values {
					gf.LookupValues = append(gf.LookupValues, genEnumValue{Value: v.Value, Name: v.Name})
				}
			case canboat.FieldTypeBitLookup:
				enum, found := bitEnums.Find(f.LookupBitEnumeration)
				if !found {
					skipped = append(skipped, skippedPGN{p, fmt.Sprintf("unknown LookupBitEnumeration %q", f.LookupBitEnumeration)})
					ok = false
				}
				gf.LookupBitEnum = f.LookupBitEnumeration
				for _, v := range enum.Values {
					gf.LookupBitValues = append(gf.LookupBitValues, genBitEnumValue{Bit: v.Bit, Name: v.Name})
				}
			case canboat.FieldTypeIndirectLookup:
				enum, found := indirectEnums.Find(f.LookupIndirectEnumeration)
				if !found {
					skipped = append(skipped, skippedPGN{p, fmt.Sprintf("unknown LookupIndirectEnumeration %q", f.LookupIndirectEnumeration)})
					ok = false
				}
				gf.LookupIndirectEnum = f.LookupIndirectEnumeration
				gf.LookupIndirectFieldOrder = f.LookupIndirectEnumerationFieldOrder
				for _, v := range enum.Values {
					gf.LookupIndirectValues = append(gf.LookupIndirectValues, genIndirectEnumValue{
						Value:         v.Value,
						IndirectValue: v.IndirectValue,
						Name:          v.Name,
					})
				}
			}
			if !ok {
				break
			}

			fields = append(fields, gf)
		}
		if !ok {
			continue
		}

		category := "n2k.CategorySingleFrame"
		if p.Type == canboat.PacketTypeFast {
			category = "n2k.CategoryFastPacket"
		}

		out = append(out, genDescriptor{
			GoName:      goIdentifier(p.ID),
			PGN:         p.PGN,
			Name:        p.Description,
			Description: p.Explanation,
			Category:    category,
			MinLength:   uint16(p.MinLength),
			Length:      uint16(p.Length),
			Fields:      fields,
		})
	}
	return out, skipped
}

func fieldKind(t canboat.FieldType) (string, error) {
	switch t {
	case canboat.FieldTypeNumber:
		return "n2k.FieldKindNumber", nil
	case canboat.FieldTypeFloat:
		return "n2k.FieldKindFloat", nil
	case canboat.FieldTypeDecimal:
		return "n2k.FieldKindDecimal", nil
	case canboat.FieldTypeLookup:
		return "n2k.FieldKindLookup", nil
	case canboat.FieldTypeIndirectLookup:
		return "n2k.FieldKindIndirectLookup", nil
	case canboat.FieldTypeBitLookup:
		return "n2k.FieldKindBitLookup", nil
	case canboat.FieldTypeTime:
		return "n2k.FieldKindTime", nil
	case canboat.FieldTypeDate:
		return "n2k.FieldKindDate", nil
	case canboat.FieldTypeStringFix:
		return "n2k.FieldKindStringFix", nil
	case canboat.FieldTypeStringLz:
		return "n2k.FieldKindStringLZ", nil
	case canboat.FieldTypeStringLAU:
		return "n2k.FieldKindStringLAU", nil
	case canboat.FieldTypeMMSI:
		return "n2k.FieldKindMMSI", nil
	case canboat.FieldTypeBinary:
		return "n2k.FieldKindBinary", nil
	case canboat.FieldTypeReserved:
		return "n2k.FieldKindReserved", nil
	case canboat.FieldTypeSpare:
		return "n2k.FieldKindSpare", nil
	default:
		return "", fmt.Errorf("unsupported field type %v", t)
	}
}

// goIdentifier turns a manifest snake/camel Id into an exported Go name,
// e.g. "waterDepth" -> "WaterDepth".
func goIdentifier(id string) string {
	if id == "" {
		return "Unnamed"
	}
	return strings.ToUpper(id[:1]) + id[1:]
}

type templateData struct {
	Package     string
	ManifestVer string
	Descriptors []genDescriptor
}

var generatedFileTemplate = template.Must(template.New("descriptors").Parse(`// Code generated by n2kgen from a CANboat manifest (version {{.ManifestVer}}).
// DO NOT EDIT.

package {{.Package}}

import "github.com/halyard-n2k/n2k"

func init() {
{{- range .Descriptors}}
	registerDescriptor(&n2k.PGNDescriptor{
		PGN:       {{.PGN}},
		Name:      {{printf "%q" .Name}},
		{{- if .Description}}
		Description: {{printf "%q" .Description}},
		{{- end}}
		Category:  {{.Category}},
		MinLength: {{.MinLength}},
		Length:    {{.Length}},
		Fields: []n2k.FieldDescriptor{
			{{- range .Fields}}
			{
				ID: {{printf "%q" .ID}}, Order: {{.Order}}, Kind: {{.Kind}},
				BitLength: {{.BitLength}}, BitOffset: {{.BitOffset}},
				{{- if .BitLengthVariable}}
				BitLengthVariable: true,
				{{- end}}
				{{- if .Signed}}
				Signed: true,
				{{- end}}
				{{- if .Resolution}}
				Resolution: {{.Resolution}},
				{{- end}}
				{{- if .Offset}}
				Offset: {{.Offset}},
				{{- end}}
				{{- if .Unit}}
				Unit: {{printf "%q" .Unit}},
				{{- end}}
				{{- if .LookupEnum}}
				LookupEnum: {{printf "%q" .LookupEnum}},
				LookupValues: []n2k.EnumValue{
					{{- range .LookupValues}}
					{Value: {{.Value}}, Name: {{printf "%q" .Name}}},
					{{- end}}
				},
				{{- end}}
				{{- if .LookupBitEnum}}
				LookupBitEnum: {{printf "%q" .LookupBitEnum}},
				LookupBitValues: []n2k.BitEnumValue{
					{{- range .LookupBitValues}}
					{Bit: {{.Bit}}, Name: {{printf "%q" .Name}}},
					{{- end}}
				},
				{{- end}}
				{{- if .LookupIndirectEnum}}
				LookupIndirectEnum: {{printf "%q" .LookupIndirectEnum}},
				LookupIndirectFieldOrder: {{.LookupIndirectFieldOrder}},
				LookupIndirectValues: []n2k.IndirectEnumValue{
					{{- range .LookupIndirectValues}}
					{Value: {{.Value}}, IndirectValue: {{.IndirectValue}}, Name: {{printf "%q" .Name}}},
					{{- end}}
				},
				{{- end}}
			},
			{{- end}}
		},
	})
{{- end}}
}
`))
