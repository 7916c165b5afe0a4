package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goptimize/internal/proposition"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

const maxContentWidth = 40

// PrintPropositions writes propositions in the given format. The table format
// prints one row per offer.
func PrintPropositions(w io.Writer, props []proposition.Proposition, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string]any{"propositions": toEventData(props)})
	case FormatYAML:
		return printYAML(w, map[string]any{"propositions": toEventData(props)})
	case FormatTable:
		return printTable(w, props)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintValue writes any value as JSON or YAML. The table format falls back to JSON.
func PrintValue(w io.Writer, v any, format OutputFormat) error {
	switch format {
	case FormatYAML:
		return printYAML(w, v)
	case FormatJSON, FormatTable:
		return printJSON(w, v)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func toEventData(props []proposition.Proposition) []map[string]any {
	out := make([]map[string]any, len(props))
	for i, p := range props {
		out[i] = p.ToEventData()
	}
	return out
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTable(w io.Writer, props []proposition.Proposition) error {
	table := tablewriter.NewWriter(w)
	table.Header("Scope", "Proposition", "Offer", "Type", "Score", "Content")

	for _, p := range props {
		for _, o := range p.Offers() {
			content := o.Content()
			if len(content) > maxContentWidth {
				content = content[:maxContentWidth-3] + "..."
			}
			if err := table.Append(
				p.Scope(),
				p.ID(),
				o.ID(),
				o.Type().Name(),
				strconv.FormatFloat(o.Score(), 'f', -1, 64),
				content,
			); err != nil {
				return err
			}
		}
	}

	return table.Render()
}
