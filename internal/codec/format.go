// Package codec decides which wire format a request speaks and converts
// expenses to and from it.
//
// Negotiation is split in two pure functions: ResolveDecoder looks at the
// Content-Type a client declared for its payload, ResolveEncoder at the
// media ranges it is willing to accept back. Neither touches the request;
// the HTTP layer feeds them header values and maps ErrUnsupportedFormat to
// 415.
package codec

import (
	"errors"
	"mime"
	"strconv"
	"strings"
)

// Format is the wire format negotiated for one direction of one request.
type Format int

const (
	Unsupported Format = iota
	JSON
	XML
)

// Supported media types.
const (
	MediaTypeJSON       = "application/json"
	MediaTypeXML        = "text/xml"
	MediaTypeXMLAppType = "application/xml"
)

var (
	// ErrUnsupportedFormat is returned when a declared or accepted media
	// type is neither JSON nor XML.
	ErrUnsupportedFormat = errors.New("unsupported media type")

	// ErrMalformedPayload is returned when a body does not parse in the
	// format its Content-Type advertised.
	ErrMalformedPayload = errors.New("payload does not match the advertised format")
)

// preference is walked in order; the first acceptable format wins.
var preference = []Format{JSON, XML}

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case XML:
		return "xml"
	default:
		return "unsupported"
	}
}

// ContentType is the value written to the Content-Type response header.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return MediaTypeJSON + "; charset=utf-8"
	case XML:
		return MediaTypeXML + "; charset=utf-8"
	default:
		return ""
	}
}

// mediaTypes lists the concrete media types that select f.
func (f Format) mediaTypes() []string {
	switch f {
	case JSON:
		return []string{MediaTypeJSON}
	case XML:
		return []string{MediaTypeXML, MediaTypeXMLAppType}
	default:
		return nil
	}
}

// ResolveDecoder maps a Content-Type header value to the format of the
// request body. Parameters such as charset are ignored.
func ResolveDecoder(contentType string) (Format, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Unsupported, ErrUnsupportedFormat
	}
	for _, f := range preference {
		for _, candidate := range f.mediaTypes() {
			if mt == candidate {
				return f, nil
			}
		}
	}
	return Unsupported, ErrUnsupportedFormat
}

// ResolveEncoder picks the response format from an Accept header value.
// An empty header accepts everything. When both JSON and XML are
// acceptable JSON is chosen, whatever the q-values say.
func ResolveEncoder(accept string) (Format, error) {
	ranges := parseAccept(accept)
	for _, f := range preference {
		if acceptable(ranges, f) {
			return f, nil
		}
	}
	return Unsupported, ErrUnsupportedFormat
}

type mediaRange struct {
	typ     string
	subtype string
	q       float64
}

func parseAccept(accept string) []mediaRange {
	if strings.TrimSpace(accept) == "" {
		return []mediaRange{{typ: "*", subtype: "*", q: 1}}
	}

	var out []mediaRange
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mt, params, err := mime.ParseMediaType(part)
		if err != nil {
			continue
		}
		if mt == "*" {
			mt = "*/*"
		}
		typ, subtype, ok := strings.Cut(mt, "/")
		if !ok || typ == "" || subtype == "" || (typ == "*" && subtype != "*") {
			continue
		}
		q := 1.0
		if raw, ok := params["q"]; ok {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed < 0 || parsed > 1 {
				continue
			}
			q = parsed
		}
		out = append(out, mediaRange{typ: typ, subtype: subtype, q: q})
	}
	return out
}

// acceptable reports whether any media type of f is matched by its most
// specific range with a non-zero quality.
func acceptable(ranges []mediaRange, f Format) bool {
	for _, mt := range f.mediaTypes() {
		typ, subtype, _ := strings.Cut(mt, "/")
		best, q := -1, 0.0
		for _, r := range ranges {
			rank := r.specificity(typ, subtype)
			if rank > best {
				best, q = rank, r.q
			}
		}
		if best >= 0 && q > 0 {
			return true
		}
	}
	return false
}

// specificity is -1 when r does not match, otherwise 0 for */*, 1 for
// type/* and 2 for an exact match.
func (r mediaRange) specificity(typ, subtype string) int {
	switch {
	case r.typ == "*" && r.subtype == "*":
		return 0
	case r.typ == typ && r.subtype == "*":
		return 1
	case r.typ == typ && r.subtype == subtype:
		return 2
	default:
		return -1
	}
}
