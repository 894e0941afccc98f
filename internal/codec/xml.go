package codec

import (
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"expensetracker/internal/core"
)

// XML layout. A record is <expense> with one child per field; non-string
// values are tagged with a type attribute so decoding restores the same Go
// values JSON decoding would produce.
const (
	elemList    = "expenses"
	elemRecord  = "expense"
	elemItem    = "item"
	elemGeneric = "field"

	attrType         = "type"
	attrNil          = "nil"
	attrName         = "name"
	attrEncoding     = "encoding"
	attrNameEncoding = "name-encoding"

	encodingBase64 = "base64"

	typeString  = "string"
	typeNumber  = "number"
	typeBoolean = "boolean"
	typeObject  = "object"
	typeArray   = "array"

	// maxDepth matches the nesting limit of encoding/json.
	maxDepth = 10000
)

// EncodeXML writes expenses as <expenses><expense>…</expense>…</expenses>.
func EncodeXML(w io.Writer, expenses []core.Expense) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	enc := xml.NewEncoder(w)
	list := xml.StartElement{Name: xml.Name{Local: elemList}}
	if err := enc.EncodeToken(list); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	for _, e := range expenses {
		start := xml.StartElement{Name: xml.Name{Local: elemRecord}}
		if err := encodeFields(enc, start, map[string]any(e)); err != nil {
			return fmt.Errorf("encode xml: %w", err)
		}
	}
	if err := enc.EncodeToken(list.End()); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	return nil
}

func encodeFields(enc *xml.Encoder, start xml.StartElement, m map[string]any) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := encodeValue(enc, fieldStart(k), m[k]); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	return enc.EncodeToken(start.End())
}

func encodeItems(enc *xml.Encoder, start xml.StartElement, items []any) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, v := range items {
		if err := encodeValue(enc, xml.StartElement{Name: xml.Name{Local: elemItem}}, v); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func encodeValue(enc *xml.Encoder, start xml.StartElement, v any) error {
	switch t := v.(type) {
	case nil:
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrNil}, Value: "true"})
		return encodeLeaf(enc, start, "")
	case string:
		if !isXMLText(t) {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrEncoding}, Value: encodingBase64})
			return encodeLeaf(enc, start, base64.StdEncoding.EncodeToString([]byte(t)))
		}
		return encodeLeaf(enc, start, t)
	case bool:
		return encodeLeaf(enc, typed(start, typeBoolean), strconv.FormatBool(t))
	case json.Number:
		return encodeLeaf(enc, typed(start, typeNumber), t.String())
	case int:
		return encodeLeaf(enc, typed(start, typeNumber), strconv.Itoa(t))
	case int32:
		return encodeLeaf(enc, typed(start, typeNumber), strconv.FormatInt(int64(t), 10))
	case int64:
		return encodeLeaf(enc, typed(start, typeNumber), strconv.FormatInt(t, 10))
	case uint:
		return encodeLeaf(enc, typed(start, typeNumber), strconv.FormatUint(uint64(t), 10))
	case uint64:
		return encodeLeaf(enc, typed(start, typeNumber), strconv.FormatUint(t, 10))
	case float32:
		return encodeLeaf(enc, typed(start, typeNumber), strconv.FormatFloat(float64(t), 'f', -1, 32))
	case float64:
		return encodeLeaf(enc, typed(start, typeNumber), strconv.FormatFloat(t, 'f', -1, 64))
	case map[string]any:
		return encodeFields(enc, typed(start, typeObject), t)
	case core.Expense:
		return encodeFields(enc, typed(start, typeObject), t)
	case []any:
		return encodeItems(enc, typed(start, typeArray), t)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return encodeItems(enc, typed(start, typeArray), items)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}

func encodeLeaf(enc *xml.Encoder, start xml.StartElement, text string) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func typed(start xml.StartElement, typ string) xml.StartElement {
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrType}, Value: typ})
	return start
}

// fieldStart names the element after the field when that is a legal XML
// name, and falls back to <field name="…"> otherwise. Keys XML cannot
// carry as text go in base64.
func fieldStart(key string) xml.StartElement {
	if isXMLName(key) {
		return xml.StartElement{Name: xml.Name{Local: key}}
	}
	start := xml.StartElement{Name: xml.Name{Local: elemGeneric}}
	if !isXMLText(key) {
		return xml.StartElement{
			Name: start.Name,
			Attr: []xml.Attr{
				{Name: xml.Name{Local: attrName}, Value: base64.StdEncoding.EncodeToString([]byte(key))},
				{Name: xml.Name{Local: attrNameEncoding}, Value: encodingBase64},
			},
		}
	}
	start.Attr = []xml.Attr{{Name: xml.Name{Local: attrName}, Value: key}}
	return start
}

// isXMLText reports whether s survives an XML 1.0 document unchanged.
func isXMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == 0x09 || r == 0x0A || r == 0x0D:
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}

func isXMLName(s string) bool {
	if s == "" || s == elemGeneric || strings.HasPrefix(strings.ToLower(s), "xml") {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return utf8.ValidString(s)
}

// DecodeXML reads a single record element from r. The root may have any
// name; it must contain only field elements.
func DecodeXML(r io.Reader) (core.Expense, error) {
	dec := xml.NewDecoder(r)

	root, err := firstElement(dec)
	if err != nil {
		return nil, malformedXML(err)
	}
	record, err := decodeRecord(dec, root)
	if err != nil {
		return nil, malformedXML(err)
	}
	if err := expectEnd(dec); err != nil {
		return nil, malformedXML(err)
	}
	return record, nil
}

// DecodeXMLList is the inverse of EncodeXML.
func DecodeXMLList(r io.Reader) ([]core.Expense, error) {
	dec := xml.NewDecoder(r)

	root, err := firstElement(dec)
	if err != nil {
		return nil, malformedXML(err)
	}
	if root.Name.Local != elemList {
		return nil, malformedXML(fmt.Errorf("unexpected root element <%s>", root.Name.Local))
	}

	out := make([]core.Expense, 0)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformedXML(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			record, err := decodeRecord(dec, t)
			if err != nil {
				return nil, malformedXML(err)
			}
			out = append(out, record)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, malformedXML(errors.New("list element holds text"))
			}
		case xml.EndElement:
			if err := expectEnd(dec); err != nil {
				return nil, malformedXML(err)
			}
			return out, nil
		}
	}
}

// decodeRecord reads the fields of an element already opened by start.
func decodeRecord(dec *xml.Decoder, start xml.StartElement) (core.Expense, error) {
	if typ := attrValue(start, attrType); typ != "" && typ != typeObject {
		return nil, fmt.Errorf("element <%s> is a %s, not a record", start.Name.Local, typ)
	}
	text, fields, err := readContent(dec, 1)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) != "" {
		return nil, fmt.Errorf("element <%s> holds text", start.Name.Local)
	}
	return core.Expense(fieldsToMap(fields)), nil
}

type field struct {
	key   string
	value any
}

func firstElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, errors.New("no root element")
			}
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return xml.StartElement{}, errors.New("text outside of root element")
			}
		case xml.EndElement:
			return xml.StartElement{}, errors.New("unexpected end element")
		}
	}
}

func expectEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return errors.New("text after root element")
			}
		case xml.StartElement:
			return fmt.Errorf("second root element <%s>", t.Name.Local)
		}
	}
}

// readContent consumes tokens up to the end of the current element, which
// sits at depth, and returns its text and decoded child elements.
func readContent(dec *xml.Decoder, depth int) (string, []field, error) {
	var (
		text   strings.Builder
		fields []field
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", nil, io.ErrUnexpectedEOF
			}
			return "", nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			key, err := fieldKey(t)
			if err != nil {
				return "", nil, err
			}
			v, err := decodeElement(dec, t, depth+1)
			if err != nil {
				return "", nil, err
			}
			fields = append(fields, field{key: key, value: v})
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return text.String(), fields, nil
		}
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement, depth int) (any, error) {
	name := start.Name.Local
	if depth > maxDepth {
		return nil, fmt.Errorf("element <%s> exceeds max depth %d", name, maxDepth)
	}
	text, fields, err := readContent(dec, depth)
	if err != nil {
		return nil, err
	}
	blank := strings.TrimSpace(text) == ""

	if enc, ok := attrLookup(start, attrEncoding); ok {
		typ := attrValue(start, attrType)
		if enc != encodingBase64 || (typ != "" && typ != typeString) || len(fields) > 0 {
			return nil, fmt.Errorf("element <%s> has unsupported encoding %q", name, enc)
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("element <%s>: %w", name, err)
		}
		return string(raw), nil
	}

	if attrValue(start, attrNil) == "true" {
		if !blank || len(fields) > 0 {
			return nil, fmt.Errorf("nil element <%s> has content", name)
		}
		return nil, nil
	}

	switch typ := attrValue(start, attrType); typ {
	case typeObject:
		if !blank {
			return nil, fmt.Errorf("object element <%s> holds text", name)
		}
		return fieldsToMap(fields), nil
	case typeArray:
		if !blank {
			return nil, fmt.Errorf("array element <%s> holds text", name)
		}
		items := make([]any, len(fields))
		for i, f := range fields {
			items[i] = f.value
		}
		return items, nil
	case typeNumber:
		n := strings.TrimSpace(text)
		if len(fields) > 0 || !isNumber(n) {
			return nil, fmt.Errorf("element <%s> is not a number", name)
		}
		return json.Number(n), nil
	case typeBoolean:
		switch b := strings.TrimSpace(text); {
		case len(fields) > 0:
			return nil, fmt.Errorf("element <%s> is not a boolean", name)
		case b == "true":
			return true, nil
		case b == "false":
			return false, nil
		default:
			return nil, fmt.Errorf("element <%s> is not a boolean", name)
		}
	case typeString:
		if len(fields) > 0 {
			return nil, fmt.Errorf("string element <%s> has children", name)
		}
		return text, nil
	case "":
		if len(fields) > 0 {
			if !blank {
				return nil, fmt.Errorf("element <%s> mixes text and elements", name)
			}
			return fieldsToMap(fields), nil
		}
		return text, nil
	default:
		return nil, fmt.Errorf("element <%s> has unknown type %q", name, typ)
	}
}

func fieldsToMap(fields []field) map[string]any {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.key] = f.value
	}
	return m
}

func fieldKey(start xml.StartElement) (string, error) {
	if start.Name.Local != elemGeneric {
		return start.Name.Local, nil
	}
	name, ok := attrLookup(start, attrName)
	if !ok {
		return start.Name.Local, nil
	}
	enc, ok := attrLookup(start, attrNameEncoding)
	if !ok {
		return name, nil
	}
	if enc != encodingBase64 {
		return "", fmt.Errorf("unsupported name encoding %q", enc)
	}
	raw, err := base64.StdEncoding.DecodeString(name)
	if err != nil {
		return "", fmt.Errorf("field name: %w", err)
	}
	return string(raw), nil
}

func attrValue(start xml.StartElement, local string) string {
	v, _ := attrLookup(start, local)
	return v
}

func attrLookup(start xml.StartElement, local string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

func isNumber(s string) bool {
	if s == "" || !(s[0] == '-' || (s[0] >= '0' && s[0] <= '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

func malformedXML(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
}
