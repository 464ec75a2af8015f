// Package naming turns the user's destination template into concrete
// output names: either a yt-dlp output template or a rendered file name
// when metadata is already known.
package naming

import (
	"strings"
	"time"
	"unicode"
)

// DefaultTemplate is the destination template used when none is configured
const DefaultTemplate = "{artist} {year}-{month}-{day} {hour}H {title}.mp4"

const (
	missingValue     = "NA"   // placeholder for unknown metadata
	forcedExtension  = ".mp4" // templates ending in it keep it as is
	ytdlpExtension   = ".%(ext)s"
	uploadDateLayout = "20060102"
)

// ytdlpFields maps template variables to yt-dlp output template fields
var ytdlpFields = []struct{ variable, field string }{
	{"{artist}", "%(uploader)s"},
	{"{title}", "%(title)s"},
	{"{year}", "%(upload_date>%Y)s"},
	{"{month}", "%(upload_date>%m)s"},
	{"{day}", "%(upload_date>%d)s"},
	{"{hour}", "%(upload_date>%H)s"},
}

// Metadata holds the fields a template can reference
type Metadata struct {
	Title      string
	Uploader   string
	UploadDate string // YYYYMMDD as reported by the extractor
	Ext        string // without the leading dot
}

// ToYTDLP converts a user template into a yt-dlp output template.
// Templates that do not end in .mp4 get the extractor's extension appended.
func ToYTDLP(template string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}

	out := template
	for _, f := range ytdlpFields {
		out = strings.ReplaceAll(out, f.variable, f.field)
	}

	if !strings.HasSuffix(out, forcedExtension) {
		out += ytdlpExtension
	}
	return out
}

// Render resolves a user template against known metadata and returns a
// file name safe to create on any platform.
func Render(template string, md Metadata) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}

	year, month, day, hour := missingValue, missingValue, missingValue, missingValue
	if t, err := time.Parse(uploadDateLayout, md.UploadDate); err == nil {
		year = t.Format("2006")
		month = t.Format("01")
		day = t.Format("02")
		// upload_date carries no time of day
		hour = "00"
	}

	r := strings.NewReplacer(
		"{artist}", orMissing(Sanitize(md.Uploader)),
		"{title}", orMissing(Sanitize(md.Title)),
		"{year}", year,
		"{month}", month,
		"{day}", day,
		"{hour}", hour,
	)
	out := r.Replace(template)

	if !strings.HasSuffix(out, forcedExtension) {
		ext := strings.TrimPrefix(md.Ext, ".")
		if ext == "" {
			ext = strings.TrimPrefix(forcedExtension, ".")
		}
		out += "." + ext
	}
	return out
}

// Sanitize replaces characters that are invalid in file names and
// collapses surrounding whitespace
func Sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.Join(strings.Fields(name), " ")
}

func orMissing(s string) string {
	if s == "" {
		return missingValue
	}
	return s
}
