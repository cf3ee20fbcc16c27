// Package sdpshape rewrites session descriptions in flight: codec priority
// on video media sections and the opus maxaveragebitrate parameter. Both
// transforms return the input unchanged (alongside the error) when the SDP
// does not parse, so callers can deliver best effort.
package sdpshape

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

// PrioritizeCodecs reorders the payload id list of every video m= line:
// ids matching the priority codec names first, in priority order, then the
// remaining ids in their original relative order. Codec names match the
// rtpmap token before "/" case-sensitively. Non-video sections are left
// alone; an SDP with no match comes back unchanged.
func PrioritizeCodecs(s string, priority []string) (string, error) {
	if len(priority) == 0 || s == "" {
		return s, nil
	}
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(s)); err != nil {
		return s, fmt.Errorf("parse sdp: %w", err)
	}
	changed := false
	for _, media := range desc.MediaDescriptions {
		if media.MediaName.Media != "video" {
			continue
		}
		picked := make([]string, 0, len(media.MediaName.Formats))
		seen := make(map[string]bool)
		for _, codec := range priority {
			id, ok := payloadForCodec(media, codec)
			if !ok || seen[id] || !containsFormat(media.MediaName.Formats, id) {
				continue
			}
			picked = append(picked, id)
			seen[id] = true
		}
		if len(picked) == 0 {
			continue
		}
		for _, id := range media.MediaName.Formats {
			if !seen[id] {
				picked = append(picked, id)
			}
		}
		media.MediaName.Formats = picked
		changed = true
	}
	if !changed {
		return s, nil
	}
	out, err := desc.Marshal()
	if err != nil {
		return s, fmt.Errorf("marshal sdp: %w", err)
	}
	return string(out), nil
}

// SetOpusBitrate sets maxaveragebitrate on the fmtp line of the opus
// payload. It is a no-op for a non-positive bitrate and returns the SDP
// unchanged when there is no opus payload or no fmtp line for it.
func SetOpusBitrate(s string, maxAverageBitRate int) (string, error) {
	if maxAverageBitRate <= 0 || s == "" {
		return s, nil
	}
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(s)); err != nil {
		return s, fmt.Errorf("parse sdp: %w", err)
	}
	for _, media := range desc.MediaDescriptions {
		id, ok := payloadForCodec(media, "opus")
		if !ok {
			continue
		}
		for i, attr := range media.Attributes {
			if attr.Key != "fmtp" {
				continue
			}
			payload, params, found := strings.Cut(attr.Value, " ")
			if !found || payload != id {
				continue
			}
			media.Attributes[i].Value = payload + " " + setParam(params, "maxaveragebitrate", strconv.Itoa(maxAverageBitRate))
			out, err := desc.Marshal()
			if err != nil {
				return s, fmt.Errorf("marshal sdp: %w", err)
			}
			return string(out), nil
		}
	}
	return s, nil
}

// payloadForCodec finds the payload id whose rtpmap attribute in this media
// section names the codec.
func payloadForCodec(media *sdp.MediaDescription, codec string) (string, bool) {
	for _, attr := range media.Attributes {
		if attr.Key != "rtpmap" {
			continue
		}
		fields := strings.Fields(attr.Value)
		if len(fields) < 2 {
			continue
		}
		name, _, ok := strings.Cut(fields[1], "/")
		if ok && name == codec {
			return fields[0], true
		}
	}
	return "", false
}

// setParam rewrites one key of a semicolon-joined key=value parameter list,
// keeping the original parameter order. Missing keys are appended.
func setParam(params, key, value string) string {
	parts := strings.Split(params, ";")
	out := make([]string, 0, len(parts)+1)
	replaced := false
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, _, _ := strings.Cut(part, "=")
		if strings.TrimSpace(k) == key {
			if !replaced {
				out = append(out, key+"="+value)
				replaced = true
			}
			continue
		}
		out = append(out, part)
	}
	if !replaced {
		out = append(out, key+"="+value)
	}
	return strings.Join(out, ";")
}

func containsFormat(formats []string, id string) bool {
	for _, f := range formats {
		if f == id {
			return true
		}
	}
	return false
}
