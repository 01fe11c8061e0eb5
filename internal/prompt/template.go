package prompt

import (
	"fmt"
	"strings"

	"styliq/internal/domain"
)

// Placeholder tokens understood by the consultation template.
const (
	PlaceholderName  = "s_name"
	PlaceholderRole  = "s_role"
	PlaceholderStyle = "s_style"
	PlaceholderTone  = "s_tone"
	PlaceholderRatio = "ratio"
)

var requiredPlaceholders = []string{
	PlaceholderName,
	PlaceholderRole,
	PlaceholderStyle,
	PlaceholderTone,
	PlaceholderRatio,
}

// segment is either literal text or a placeholder reference.
type segment struct {
	text        string
	placeholder string
}

// Template is a parsed consultation instruction. Placeholders are written as
// {s_name}; literal braces are doubled ({{ and }}).
type Template struct {
	raw      string
	segments []segment
}

// Parse validates raw and returns a reusable template. Every required
// placeholder must appear at least once and no other placeholder may.
func Parse(raw string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.NewError(domain.KindTemplate, "prompt template is missing", nil)
	}
	segments, err := tokenize(raw)
	if err != nil {
		return nil, domain.NewError(domain.KindTemplate, "prompt template is malformed", err)
	}
	present := make(map[string]bool, len(requiredPlaceholders))
	for _, seg := range segments {
		if seg.placeholder == "" {
			continue
		}
		if !isKnown(seg.placeholder) {
			return nil, domain.NewError(domain.KindTemplate, "prompt template is malformed",
				fmt.Errorf("unknown placeholder {%s}", seg.placeholder))
		}
		present[seg.placeholder] = true
	}
	var missing []string
	for _, name := range requiredPlaceholders {
		if !present[name] {
			missing = append(missing, "{"+name+"}")
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewError(domain.KindTemplate, "prompt template is missing placeholders",
			fmt.Errorf("%s", strings.Join(missing, ", ")))
	}
	return &Template{raw: raw, segments: segments}, nil
}

// Render substitutes the persona fields and the two-decimal ratio.
func (t *Template) Render(p domain.Persona, ratio domain.FaceRatio) string {
	values := map[string]string{
		PlaceholderName:  p.Name,
		PlaceholderRole:  p.Role,
		PlaceholderStyle: p.Style,
		PlaceholderTone:  p.Tone,
		PlaceholderRatio: ratio.Format(),
	}
	var b strings.Builder
	b.Grow(len(t.raw) + 64)
	for _, seg := range t.segments {
		if seg.placeholder != "" {
			b.WriteString(values[seg.placeholder])
			continue
		}
		b.WriteString(seg.text)
	}
	return b.String()
}

func tokenize(raw string) ([]segment, error) {
	var (
		segments []segment
		lit      strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segments = append(segments, segment{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed '{' at offset %d", i)
			}
			name := strings.TrimSpace(raw[i+1 : i+1+end])
			if name == "" || strings.ContainsAny(name, "{\n") {
				return nil, fmt.Errorf("invalid placeholder at offset %d", i)
			}
			flush()
			segments = append(segments, segment{placeholder: name})
			i += end + 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at offset %d", i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return segments, nil
}

func isKnown(name string) bool {
	for _, known := range requiredPlaceholders {
		if name == known {
			return true
		}
	}
	return false
}
