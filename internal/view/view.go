package view

import (
	"CloudHunter/model"
	"math"
	"path"
	"strconv"
	"strings"
	"time"
)

// Card is one rendered file in the listing.
type Card struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Size     string `json:"size"`
	Date     string `json:"date"`
	URL      string `json:"url"`
	ShortURL string `json:"short_url,omitempty"`
}

// Listing is the files view: cards, or the empty state when there are none.
type Listing struct {
	Cards      []Card `json:"cards"`
	Empty      bool   `json:"empty"`
	EmptyTitle string `json:"empty_title,omitempty"`
	EmptyHint  string `json:"empty_hint,omitempty"`
}

const (
	EmptyTitle = "No files yet"
	EmptyHint  = `Upload your files from the "Upload" tab`
)

// BuildListing renders records in the order given.
func BuildListing(files []model.FileRecord) Listing {
	if len(files) == 0 {
		return Listing{Cards: []Card{}, Empty: true, EmptyTitle: EmptyTitle, EmptyHint: EmptyHint}
	}
	cards := make([]Card, 0, len(files))
	for _, f := range files {
		cards = append(cards, NewCard(f))
	}
	return Listing{Cards: cards}
}

func NewCard(f model.FileRecord) Card {
	return Card{
		ID:       f.ID,
		Name:     f.FileName,
		Icon:     FileIcon(f.FileType, f.FileName),
		Size:     FormatFileSize(f.FileSize),
		Date:     FormatDate(f.UploadedAt),
		URL:      f.FileURL,
		ShortURL: f.ShortURL,
	}
}

const defaultIcon = "fas fa-file"

var extIcons = map[string]string{
	"jpg": "fas fa-file-image", "jpeg": "fas fa-file-image", "png": "fas fa-file-image",
	"gif": "fas fa-file-image", "bmp": "fas fa-file-image", "svg": "fas fa-file-image",

	"mp4": "fas fa-file-video", "avi": "fas fa-file-video", "mov": "fas fa-file-video",
	"mkv": "fas fa-file-video", "wmv": "fas fa-file-video",

	"mp3": "fas fa-file-audio", "wav": "fas fa-file-audio", "ogg": "fas fa-file-audio", "flac": "fas fa-file-audio",

	"pdf": "fas fa-file-pdf",
	"doc": "fas fa-file-word", "docx": "fas fa-file-word",
	"xls": "fas fa-file-excel", "xlsx": "fas fa-file-excel",
	"ppt": "fas fa-file-powerpoint", "pptx": "fas fa-file-powerpoint",
	"txt": "fas fa-file-alt",

	"zip": "fas fa-file-archive", "rar": "fas fa-file-archive", "7z": "fas fa-file-archive",
	"tar": "fas fa-file-archive", "gz": "fas fa-file-archive",

	"html": "fas fa-file-code", "css": "fas fa-file-code", "js": "fas fa-file-code",
	"json": "fas fa-file-code", "xml": "fas fa-file-code", "php": "fas fa-file-code", "py": "fas fa-file-code",
}

// FileIcon picks an icon class from the MIME type, or from the extension
// when the type is unknown.
func FileIcon(fileType, fileName string) string {
	if fileType == "" {
		if fileName == "" {
			return defaultIcon
		}
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
		if icon, ok := extIcons[ext]; ok {
			return icon
		}
		return defaultIcon
	}
	switch {
	case strings.HasPrefix(fileType, "image/"):
		return "fas fa-file-image"
	case strings.HasPrefix(fileType, "video/"):
		return "fas fa-file-video"
	case strings.HasPrefix(fileType, "audio/"):
		return "fas fa-file-audio"
	case strings.Contains(fileType, "pdf"):
		return "fas fa-file-pdf"
	case strings.Contains(fileType, "word"):
		return "fas fa-file-word"
	case strings.Contains(fileType, "excel"), strings.Contains(fileType, "spreadsheet"):
		return "fas fa-file-excel"
	case strings.Contains(fileType, "powerpoint"), strings.Contains(fileType, "presentation"):
		return "fas fa-file-powerpoint"
	case strings.Contains(fileType, "zip"), strings.Contains(fileType, "compressed"):
		return "fas fa-file-archive"
	case strings.Contains(fileType, "text"):
		return "fas fa-file-alt"
	}
	return defaultIcon
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders bytes in 1024-based units rounded to two decimals.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// FormatDate renders an upload time, or a placeholder when unknown.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Not available"
	}
	return t.Format("January 2, 2006 15:04")
}
