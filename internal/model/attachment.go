package model

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentChart AttachmentKind = "chart"
)

// Attachment is an image or a chart rendered alongside a message.
// Image attachments use URL and MIMEType; chart attachments use Chart.
type Attachment struct {
	Kind     AttachmentKind `json:"type"`
	URL      string         `json:"url,omitempty"`
	MIMEType string         `json:"mimeType,omitempty"`
	Chart    *Chart         `json:"data,omitempty"`
}

func NewImageAttachment(url, mimeType string) Attachment {
	return Attachment{Kind: AttachmentImage, URL: url, MIMEType: mimeType}
}

func NewChartAttachment(c Chart) Attachment {
	return Attachment{Kind: AttachmentChart, Chart: &c}
}

// NewUploadAttachment embeds an uploaded image as a data URL.
func NewUploadAttachment(img InlineImage) Attachment {
	url := fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
	return NewImageAttachment(url, img.MIMEType)
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	type rawAttachment Attachment
	var raw rawAttachment
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case AttachmentImage:
		if raw.URL == "" {
			return fmt.Errorf("image attachment without url")
		}
	case AttachmentChart:
		if raw.Chart == nil {
			return fmt.Errorf("chart attachment without data")
		}
	default:
		return fmt.Errorf("unknown attachment type %q", raw.Kind)
	}

	*a = Attachment(raw)
	return nil
}

// Render writes a terminal rendition of the attachment.
func (a Attachment) Render(w io.Writer) error {
	switch a.Kind {
	case AttachmentImage:
		if strings.HasPrefix(a.URL, "data:") {
			_, err := fmt.Fprintf(w, "[image %s, %d bytes inline]\n", a.MIMEType, len(a.URL))
			return err
		}
		_, err := fmt.Fprintf(w, "[image] %s\n", a.URL)
		return err
	case AttachmentChart:
		if a.Chart == nil {
			return fmt.Errorf("chart attachment without data")
		}
		return a.Chart.Render(w)
	default:
		return fmt.Errorf("unknown attachment type %q", a.Kind)
	}
}
