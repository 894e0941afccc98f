package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDecoder(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        Format
		wantErr     error
	}{
		{name: "json", contentType: "application/json", want: JSON},
		{name: "json with charset", contentType: "application/json; charset=utf-8", want: JSON},
		{name: "json upper case", contentType: "Application/JSON", want: JSON},
		{name: "text xml", contentType: "text/xml", want: XML},
		{name: "application xml", contentType: "application/xml", want: XML},
		{name: "plain text", contentType: "text/plain", wantErr: ErrUnsupportedFormat},
		{name: "form", contentType: "application/x-www-form-urlencoded", wantErr: ErrUnsupportedFormat},
		{name: "missing", contentType: "", wantErr: ErrUnsupportedFormat},
		{name: "garbage", contentType: ";;;", wantErr: ErrUnsupportedFormat},
		{name: "wildcard is not a content type", contentType: "*/*", wantErr: ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDecoder(tt.contentType)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, Unsupported, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEncoder(t *testing.T) {
	tests := []struct {
		name    string
		accept  string
		want    Format
		wantErr bool
	}{
		{name: "empty accepts anything", accept: "", want: JSON},
		{name: "any", accept: "*/*", want: JSON},
		{name: "json", accept: "application/json", want: JSON},
		{name: "xml", accept: "text/xml", want: XML},
		{name: "application xml", accept: "application/xml", want: XML},
		{name: "both prefers json", accept: "text/xml, application/json", want: JSON},
		{name: "json preferred over higher xml quality", accept: "text/xml;q=1, application/json;q=0.1", want: JSON},
		{name: "json excluded", accept: "application/json;q=0, */*", want: XML},
		{name: "type wildcard", accept: "text/*", want: XML},
		{name: "application wildcard", accept: "application/*", want: JSON},
		{name: "specific range overrides wildcard", accept: "application/*;q=0, text/xml", want: XML},
		{name: "plain text", accept: "text/plain", wantErr: true},
		{name: "html", accept: "text/html, image/png", wantErr: true},
		{name: "everything excluded", accept: "*/*;q=0", wantErr: true},
		{name: "invalid quality ignored", accept: "application/json;q=abc", wantErr: true},
		{name: "bare star", accept: "*", want: JSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveEncoder(tt.accept)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				assert.Equal(t, Unsupported, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatContentType(t *testing.T) {
	assert.Equal(t, "application/json; charset=utf-8", JSON.ContentType())
	assert.Equal(t, "text/xml; charset=utf-8", XML.ContentType())
	assert.Empty(t, Unsupported.ContentType())
	assert.Equal(t, "xml", XML.String())
}
