package transform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const (
	// maxAliasExpansions bounds alias dereferences per document so that
	// nested anchors cannot blow up the output.
	maxAliasExpansions = 10000
	maxDepth           = 1000

	// integers beyond this magnitude are not exactly representable as
	// JSON numbers read by double precision consumers
	maxSafeInteger = 1<<53 - 1
)

var errTooManyAliases = errors.New("too many alias expansions")

// YAMLToJSON converts a single YAML document into compact JSON.
//
// Mapping keys are written in JavaScript property order: integer keys
// first in ascending order, then the others in source order. Merge keys
// ("<<") are expanded, timestamps are rendered as UTC ISO-8601 strings
// with millisecond precision and non-finite floats become null.
// Non-ASCII characters are written as raw UTF-8, so the byte length of
// the output can exceed its character count.
func YAMLToJSON(src []byte) ([]byte, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, fmt.Errorf("parse yaml: %w", err)
	default:
		return nil, ErrMultipleDocuments
	}

	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 0 {
		return nil, ErrEmptyDocument
	}

	w := &jsonWriter{}
	if err := w.node(&doc, 0); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

type jsonWriter struct {
	buf     bytes.Buffer
	aliases int
}

type pair struct {
	key   string
	value *yaml.Node
}

func (w *jsonWriter) deref(n *yaml.Node) (*yaml.Node, error) {
	for n.Kind == yaml.AliasNode {
		w.aliases++
		if w.aliases > maxAliasExpansions {
			return nil, fmt.Errorf("line %d: %w", n.Line, errTooManyAliases)
		}
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: unknown anchor %q", n.Line, n.Value)
		}
		n = n.Alias
	}
	return n, nil
}

func (w *jsonWriter) node(n *yaml.Node, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("line %d: document nested too deeply", n.Line)
	}
	n, err := w.deref(n)
	if err != nil {
		return err
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			w.buf.WriteString("null")
			return nil
		}
		return w.node(n.Content[0], depth+1)
	case yaml.MappingNode:
		return w.mapping(n, depth)
	case yaml.SequenceNode:
		w.buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			if err := w.node(item, depth+1); err != nil {
				return err
			}
		}
		w.buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		return w.scalar(n)
	default:
		return fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

func (w *jsonWriter) mapping(n *yaml.Node, depth int) error {
	pairs, err := w.pairs(n, depth)
	if err != nil {
		return err
	}
	indexKeysFirst(pairs)

	w.buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		writeString(&w.buf, p.key)
		w.buf.WriteByte(':')
		if err := w.node(p.value, depth+1); err != nil {
			return err
		}
	}
	w.buf.WriteByte('}')
	return nil
}

// pairs flattens a mapping node into key/value pairs in first-seen
// order. A merged key never replaces an earlier one, an explicit key
// replaces a merged one in place and a repeated explicit key is an error.
func (w *jsonWriter) pairs(n *yaml.Node, depth int) ([]pair, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("line %d: document nested too deeply", n.Line)
	}

	out := make([]pair, 0, len(n.Content)/2)
	index := make(map[string]int, len(n.Content)/2)
	fromMerge := make(map[string]bool)

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]

		if isMergeKey(k) {
			merged, err := w.merged(v, depth+1)
			if err != nil {
				return nil, err
			}
			for _, p := range merged {
				if _, ok := index[p.key]; ok {
					continue
				}
				index[p.key] = len(out)
				fromMerge[p.key] = true
				out = append(out, p)
			}
			continue
		}

		key, err := w.key(k)
		if err != nil {
			return nil, err
		}
		if at, ok := index[key]; ok {
			if !fromMerge[key] {
				return nil, fmt.Errorf("line %d: duplicate mapping key %q", k.Line, key)
			}
			out[at].value = v
			delete(fromMerge, key)
			continue
		}
		index[key] = len(out)
		out = append(out, pair{key: key, value: v})
	}
	return out, nil
}

func (w *jsonWriter) merged(v *yaml.Node, depth int) ([]pair, error) {
	v, err := w.deref(v)
	if err != nil {
		return nil, err
	}

	switch v.Kind {
	case yaml.MappingNode:
		return w.pairs(v, depth)
	case yaml.SequenceNode:
		var out []pair
		seen := make(map[string]bool)
		for _, item := range v.Content {
			item, err := w.deref(item)
			if err != nil {
				return nil, err
			}
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: merge sequence must contain mappings", item.Line)
			}
			ps, err := w.pairs(item, depth+1)
			if err != nil {
				return nil, err
			}
			for _, p := range ps {
				if !seen[p.key] {
					seen[p.key] = true
					out = append(out, p)
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: merge value must be a mapping", v.Line)
	}
}

func (w *jsonWriter) key(k *yaml.Node) (string, error) {
	k, err := w.deref(k)
	if err != nil {
		return "", err
	}
	if k.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
	}

	switch k.ShortTag() {
	case "!!null":
		return "null", nil
	case "!!bool":
		var b bool
		if err := k.Decode(&b); err != nil {
			return "", fmt.Errorf("line %d: %w", k.Line, err)
		}
		return strconv.FormatBool(b), nil
	case "!!int", "!!float":
		return number(k)
	case "!!timestamp":
		return timestamp(k), nil
	default:
		return k.Value, nil
	}
}

func (w *jsonWriter) scalar(n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		w.buf.WriteString("null")
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		w.buf.WriteString(strconv.FormatBool(b))
	case "!!int", "!!float":
		s, err := number(n)
		if err != nil {
			return err
		}
		w.buf.WriteString(s)
	case "!!timestamp":
		writeString(&w.buf, timestamp(n))
	default:
		writeString(&w.buf, n.Value)
	}
	return nil
}

func number(n *yaml.Node) (string, error) {
	if n.ShortTag() == "!!int" {
		var i int64
		if err := n.Decode(&i); err == nil {
			if i > maxSafeInteger || i < -maxSafeInteger {
				return formatNumber(float64(i)), nil
			}
			return strconv.FormatInt(i, 10), nil
		}
	}

	var f float64
	if err := n.Decode(&f); err != nil {
		return "", fmt.Errorf("line %d: invalid number %q: %w", n.Line, n.Value, err)
	}
	return formatNumber(f), nil
}

// formatNumber renders f the way a JavaScript engine serializes numbers.
func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + digits
}

func timestamp(n *yaml.Node) string {
	var t time.Time
	if err := n.Decode(&t); err != nil {
		return n.Value
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// writeString quotes s as a JSON string. Only quotes, backslashes and
// control characters are escaped.
func writeString(buf *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"

	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hex[c>>4])
				buf.WriteByte(hex[c&0xf])
				continue
			}
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
}

func isMergeKey(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge"
}

// indexKeysFirst moves keys that are canonical array indices to the front
// in ascending numeric order, the property order of JavaScript objects.
// The remaining keys keep their relative order.
func indexKeysFirst(pairs []pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		a, aok := arrayIndex(pairs[i].key)
		b, bok := arrayIndex(pairs[j].key)
		switch {
		case aok && bok:
			return a < b
		default:
			return aok && !bok
		}
	})
}

// arrayIndex parses key as an integer in [0, 2^32-2] without sign or
// leading zeros.
func arrayIndex(key string) (uint64, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseUint(key, 10, 64)
	if err != nil || v > math.MaxUint32-1 {
		return 0, false
	}
	return v, true
}
