package chat

import (
	"fmt"
	"strconv"
	"strings"
)

// Message content is stored as a tagged string: plain text, an image
// payload prefixed with "[img]", or a location prefixed with "[loc]".
// The prefixes are the wire format; code should go through Content
// instead of inspecting prefixes directly.
const (
	imagePrefix    = "[img]"
	locationPrefix = "[loc]"
)

// ContentKind discriminates the payload variants of a chat message.
type ContentKind int

const (
	KindText ContentKind = iota
	KindImage
	KindLocation
)

// Content is the decoded form of a message payload.
type Content struct {
	Kind ContentKind
	Text string // KindText
	Data string // KindImage: base64 image data
	Lat  float64
	Lon  float64
}

// EncodeImage tags base64 image data for storage and fanout.
func EncodeImage(data string) string {
	return imagePrefix + data
}

// EncodeLocation tags a coordinate pair for storage and fanout.
func EncodeLocation(lat, lon float64) string {
	return fmt.Sprintf("%s%v,%v", locationPrefix, lat, lon)
}

// ParseContent decodes a stored payload. Malformed location payloads
// fall back to plain text rather than failing; the raw string is always
// a valid text message.
func ParseContent(s string) Content {
	if data, ok := strings.CutPrefix(s, imagePrefix); ok {
		return Content{Kind: KindImage, Data: data}
	}
	if coords, ok := strings.CutPrefix(s, locationPrefix); ok {
		latStr, lonStr, found := strings.Cut(coords, ",")
		if found {
			lat, errLat := strconv.ParseFloat(latStr, 64)
			lon, errLon := strconv.ParseFloat(lonStr, 64)
			if errLat == nil && errLon == nil {
				return Content{Kind: KindLocation, Lat: lat, Lon: lon}
			}
		}
	}
	return Content{Kind: KindText, Text: s}
}
