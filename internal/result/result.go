// Package result interprets webhook responses into a downloadable payload.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrUnexpectedFormat is returned for well-formed JSON that carries
	// neither inline CSV nor a download URL.
	ErrUnexpectedFormat = errors.New("unexpected response format")

	// ErrUnreadable is returned when a non-CSV body is not valid JSON.
	ErrUnreadable = errors.New("unable to process response data")
)

// Kind tells which member of the Payload union is set.
type Kind int

const (
	// KindCSV means CSV holds the file contents.
	KindCSV Kind = iota
	// KindURL means URL points at the file.
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindCSV:
		return "csv"
	case KindURL:
		return "url"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Payload is the outcome of one successful submission.
type Payload struct {
	Kind     Kind
	CSV      []byte
	URL      string
	Filename string
}

// jsonBody is the JSON response contract of the webhook.
type jsonBody struct {
	Success     bool   `json:"success"`
	CSVData     string `json:"csvData"`
	DownloadURL string `json:"downloadUrl"`
}

// responseSchema accepts inline CSV with success set, or a download URL.
const responseSchema = `{
  "type": "object",
  "properties": {
    "success": {"type": "boolean"},
    "csvData": {"type": "string"},
    "downloadUrl": {"type": "string"}
  },
  "anyOf": [
    {
      "required": ["success", "csvData"],
      "properties": {"success": {"const": true}, "csvData": {"minLength": 1}}
    },
    {
      "required": ["downloadUrl"],
      "properties": {"downloadUrl": {"minLength": 1}}
    }
  ]
}`

var compiledSchema = mustCompileSchema(responseSchema)

func mustCompileSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("result: compile response schema: %v", err))
	}
	return schema
}

// validateJSON checks body against responseSchema.
func validateJSON(body []byte) error {
	if !json.Valid(body) {
		return ErrUnreadable
	}

	res, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if !res.Valid() {
		errs := make([]string, len(res.Errors()))
		for i, desc := range res.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrUnexpectedFormat, strings.Join(errs, "; "))
	}
	return nil
}

// DefaultFilename returns "<prefix>-<YYYY-MM-DD>.csv" for the UTC date of now.
func DefaultFilename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", prefix, now.UTC().Format("2006-01-02"))
}

// IsCSV reports whether a Content-Type header declares CSV.
func IsCSV(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/csv")
}

// FilenameFromDisposition extracts the filename parameter of a
// Content-Disposition header. Directory components are stripped.
func FilenameFromDisposition(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	} else {
		// Lenient fallback for headers mime rejects, e.g. a bare
		// `filename="x.csv"` without a disposition type.
		const marker = `filename="`
		i := strings.Index(header, marker)
		if i < 0 {
			return "", false
		}
		rest := header[i+len(marker):]
		j := strings.LastIndex(rest, `"`)
		if j <= 0 {
			return "", false
		}
		name = rest[:j]
	}

	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", false
	}
	return name, true
}

// Parse interprets a 2xx response body. A CSV content type yields the body
// as-is; anything else must be JSON carrying csvData (with success set) or
// downloadUrl. defaultName is used unless disposition names a file.
func Parse(contentType, disposition string, body []byte, defaultName string) (*Payload, error) {
	filename := defaultName
	if name, ok := FilenameFromDisposition(disposition); ok {
		filename = name
	}

	if IsCSV(contentType) {
		return &Payload{Kind: KindCSV, CSV: body, Filename: filename}, nil
	}

	if err := validateJSON(body); err != nil {
		return nil, err
	}
	var jb jsonBody
	if err := json.Unmarshal(body, &jb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	// Inline CSV wins when both members are present.
	switch {
	case jb.Success && jb.CSVData != "":
		return &Payload{Kind: KindCSV, CSV: []byte(jb.CSVData), Filename: filename}, nil
	case jb.DownloadURL != "":
		u, err := url.Parse(jb.DownloadURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("%w: bad download URL %q", ErrUnexpectedFormat, jb.DownloadURL)
		}
		return &Payload{Kind: KindURL, URL: u.String(), Filename: filename}, nil
	default:
		return nil, ErrUnexpectedFormat
	}
}
