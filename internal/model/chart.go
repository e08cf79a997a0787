package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	defaultChartTitle = "Production Metrics"
	chartBarWidth     = 24
)

// Chart is the payload of a VISUAL_DATA directive. Fields the renderer does
// not know about are kept in Extra so the payload round-trips unchanged.
type Chart struct {
	Type     string
	Title    string
	Labels   []string
	Datasets []Dataset
	Extra    map[string]json.RawMessage
}

type Dataset struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// UnmarshalJSON accepts any JSON object. Scalars in type, title and labels
// are taken as text and numeric strings in values as numbers; a known field
// that still does not fit is kept verbatim in Extra.
func (c *Chart) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("chart payload is null")
	}

	var out Chart
	for k, v := range fields {
		ok := false
		switch k {
		case "type":
			out.Type, ok = scalarText(v)
		case "title":
			out.Title, ok = scalarText(v)
		case "labels":
			out.Labels, ok = decodeLabels(v)
		case "datasets":
			out.Datasets, ok = decodeDatasets(v)
		}
		if ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}

	*c = out
	return nil
}

func scalarText(raw json.RawMessage) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch v := v.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func decodeLabels(raw json.RawMessage) ([]string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		return nil, true
	}

	labels := make([]string, 0, len(items))
	for _, item := range items {
		label, ok := scalarText(item)
		if !ok {
			return nil, false
		}
		labels = append(labels, label)
	}
	return labels, true
}

func decodeDatasets(raw json.RawMessage) ([]Dataset, bool) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		return nil, true
	}

	datasets := make([]Dataset, 0, len(items))
	for _, item := range items {
		var ds Dataset
		if v, ok := item["label"]; ok {
			if ds.Label, ok = scalarText(v); !ok {
				return nil, false
			}
		}
		if v, ok := item["values"]; ok {
			if ds.Values, ok = decodeValues(v); !ok {
				return nil, false
			}
		}
		datasets = append(datasets, ds)
	}
	return datasets, true
}

func decodeValues(raw json.RawMessage) ([]float64, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		return nil, true
	}

	values := make([]float64, 0, len(items))
	for _, item := range items {
		text, ok := scalarText(item)
		if !ok {
			return nil, false
		}
		if text == "" {
			values = append(values, 0)
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

// MarshalJSON writes Extra last so a known field that was kept raw on decode
// round-trips as it came in.
func (c Chart) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(c.Extra)+4)
	if c.Type != "" {
		fields["type"] = c.Type
	}
	fields["title"] = c.Title
	if c.Labels != nil {
		fields["labels"] = c.Labels
	}
	if c.Datasets != nil {
		fields["datasets"] = c.Datasets
	}
	for k, v := range c.Extra {
		fields[k] = v
	}
	return json.Marshal(fields)
}

// Render draws the first dataset as horizontal bars scaled to the largest
// value across all datasets.
func (c Chart) Render(w io.Writer) error {
	title := c.Title
	if title == "" {
		title = defaultChartTitle
	}

	maxValue := 1.0
	for _, ds := range c.Datasets {
		for _, v := range ds.Values {
			if v > maxValue {
				maxValue = v
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", strings.ToUpper(title))

	labelWidth := 0
	for _, l := range c.Labels {
		if n := len([]rune(l)); n > labelWidth {
			labelWidth = n
		}
	}

	for i, label := range c.Labels {
		value := 0.0
		if len(c.Datasets) > 0 && i < len(c.Datasets[0].Values) {
			value = c.Datasets[0].Values[i]
		}
		bar := 0
		if value > 0 {
			bar = int(value / maxValue * chartBarWidth)
		}
		pad := strings.Repeat(" ", labelWidth-len([]rune(label)))
		fmt.Fprintf(&b, "  %s%s |%s %g\n", label, pad, strings.Repeat("█", bar), value)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
